package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/erp_backend/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch title lookups for one request, one loader per referenced kind.
type Loaders struct {
	titleLoaders map[models.TitleKind]*dataloader.Loader[int, *models.AccountTitle]
}

var titleKinds = []models.TitleKind{
	models.TitleAccountLevel4,
	models.TitleDefaultAccount,
	models.TitleItem,
	models.TitleGodown,
	models.TitleParentCenter,
	models.TitleChildCenter,
}

func NewLoaders(companyId string) *Loaders {
	loaders := &Loaders{
		titleLoaders: make(map[models.TitleKind]*dataloader.Loader[int, *models.AccountTitle], len(titleKinds)),
	}
	for _, kind := range titleKinds {
		reader := &titleReader{companyId: companyId, kind: kind}
		loaders.titleLoaders[kind] = dataloader.NewBatchedLoader(
			reader.getTitles,
			dataloader.WithWait[int, *models.AccountTitle](time.Millisecond),
		)
	}
	return loaders
}

// Titles satisfies models.TitleLookup. Ids with no row are left out of the map.
func (l *Loaders) Titles(ctx context.Context, kind models.TitleKind, ids []int) (map[int]*models.AccountTitle, error) {
	out := make(map[int]*models.AccountTitle, len(ids))
	loader, ok := l.titleLoaders[kind]
	if !ok || len(ids) == 0 {
		return out, nil
	}
	titles, errs := loader.LoadMany(ctx, ids)()
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		if i < len(titles) && titles[i] != nil {
			out[id] = titles[i]
		}
	}
	return out, nil
}

// LoaderMiddleware must run after SessionMiddleware so the tenant is known.
func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyId := c.GetString(companyIdKey)
		loader := NewLoaders(companyId)
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns nil outside a request that went through LoaderMiddleware.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(loadersKey).(*Loaders)
	return loaders
}

// TitleLookup returns the request loaders, falling back to direct store reads.
func TitleLookup(ctx context.Context) models.TitleLookup {
	if loaders := For(ctx); loaders != nil {
		return loaders
	}
	return models.NewDBTitleLookup()
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}
