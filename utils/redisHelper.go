package utils

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
)

// TitleCacheLifespan bounds staleness of cached display titles.
const TitleCacheLifespan = 10 * time.Minute

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func cacheKey[T any](companyId string, id int) string {
	return GetTypeName[T]() + ":" + companyId + ":" + fmt.Sprint(id)
}

// store instance under Type:$company_id:$id
func StoreRedis[T any](ctx context.Context, companyId string, id int, obj *T) error {
	return config.SetRedisObject(ctx, cacheKey[T](companyId, id), obj, TitleCacheLifespan)
}

// get from redis
// returns nil if does not exist (or Redis is off)
func RetrieveRedis[T any](ctx context.Context, companyId string, id int) (*T, error) {
	var result T
	exists, err := config.GetRedisObject(ctx, cacheKey[T](companyId, id), &result)
	if err != nil || !exists {
		return nil, err
	}
	return &result, nil
}

// remove an instance, Type:$company_id:$id
func RemoveRedisItem[T any](ctx context.Context, companyId string, id int) error {
	return config.RemoveRedisKey(ctx, cacheKey[T](companyId, id))
}
