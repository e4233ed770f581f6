package models

import (
	"context"
	"sync"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"gorm.io/gorm"
)

type TitleKind string

const (
	TitleAccountLevel4  TitleKind = "AccountLevel4"
	TitleDefaultAccount TitleKind = "DefaultAccount"
	TitleItem           TitleKind = "Item"
	TitleGodown         TitleKind = "Godown"
	TitleParentCenter   TitleKind = "ParentCenter"
	TitleChildCenter    TitleKind = "ChildCenter"
)

// AccountTitle is the display form of any referenced row. It is never stored on a voucher.
type AccountTitle struct {
	ID    int    `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
}

// TitleLookup resolves display titles in batches. Missing ids are absent from the map.
type TitleLookup interface {
	Titles(ctx context.Context, kind TitleKind, ids []int) (map[int]*AccountTitle, error)
}

type SalesVoucherItemView struct {
	SalesVoucherItem
	ProductTitle      string `json:"product_title"`
	AccountTitle      string `json:"account_title"`
	FinishedGoodTitle string `json:"finished_good_title"`
}

type SalesVoucherView struct {
	*SalesVoucher
	GodownTitle        string                 `json:"godown_title"`
	DebtorAccountTitle string                 `json:"debtor_account_title"`
	SubAccountTitle    string                 `json:"sub_account_title"`
	ParentCenterTitle  string                 `json:"parent_center_title"`
	ChildCenterTitle   string                 `json:"child_center_title"`
	Items              []SalesVoucherItemView `json:"items"`
}

func GetSalesVoucherView(ctx context.Context, id int, lookup TitleLookup) (*SalesVoucherView, error) {
	voucher, err := GetSalesVoucher(ctx, id)
	if err != nil {
		return nil, err
	}
	return DecorateVoucher(ctx, voucher, lookup)
}

type titleRequest struct {
	kind TitleKind
	ids  []int
}

// DecorateVoucher fetches the titles of every reference, one batch per kind, concurrently.
func DecorateVoucher(ctx context.Context, v *SalesVoucher, lookup TitleLookup) (*SalesVoucherView, error) {
	if lookup == nil {
		lookup = NewDBTitleLookup()
	}
	level4Ids := []int{v.SubAccountId}
	itemIds := make([]int, 0, len(v.Items))
	defaultIds := []int{v.DebtorAccountId}
	for _, item := range v.Items {
		level4Ids = append(level4Ids, item.Level4Id)
		itemIds = append(itemIds, item.ProductId)
		if item.FinishedGoodId != nil {
			defaultIds = append(defaultIds, *item.FinishedGoodId)
		}
	}
	requests := []titleRequest{
		{TitleAccountLevel4, utils.UniqueSlice(level4Ids)},
		{TitleDefaultAccount, utils.UniqueSlice(defaultIds)},
		{TitleItem, utils.UniqueSlice(itemIds)},
		{TitleGodown, []int{v.GodownId}},
	}
	if v.ParentCenterId != nil {
		requests = append(requests, titleRequest{TitleParentCenter, []int{*v.ParentCenterId}})
	}
	if v.ChildCenterId != nil {
		requests = append(requests, titleRequest{TitleChildCenter, []int{*v.ChildCenterId}})
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	titles := make(map[TitleKind]map[int]*AccountTitle, len(requests))
	for _, req := range requests {
		wg.Add(1)
		go func(req titleRequest) {
			defer wg.Done()
			res, err := lookup.Titles(ctx, req.kind, req.ids)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			titles[req.kind] = res
		}(req)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	title := func(kind TitleKind, id int) string {
		if t, ok := titles[kind][id]; ok && t != nil {
			return t.Title
		}
		return ""
	}
	view := &SalesVoucherView{
		SalesVoucher:       v,
		GodownTitle:        title(TitleGodown, v.GodownId),
		DebtorAccountTitle: title(TitleDefaultAccount, v.DebtorAccountId),
		SubAccountTitle:    title(TitleAccountLevel4, v.SubAccountId),
		Items:              make([]SalesVoucherItemView, 0, len(v.Items)),
	}
	if v.ParentCenterId != nil {
		view.ParentCenterTitle = title(TitleParentCenter, *v.ParentCenterId)
	}
	if v.ChildCenterId != nil {
		view.ChildCenterTitle = title(TitleChildCenter, *v.ChildCenterId)
	}
	for _, item := range v.Items {
		iv := SalesVoucherItemView{
			SalesVoucherItem: item,
			ProductTitle:     title(TitleItem, item.ProductId),
			AccountTitle:     title(TitleAccountLevel4, item.Level4Id),
		}
		if item.FinishedGoodId != nil {
			iv.FinishedGoodTitle = title(TitleDefaultAccount, *item.FinishedGoodId)
		}
		view.Items = append(view.Items, iv)
	}
	return view, nil
}

// DBTitleLookup reads titles straight from the store, with Level4 titles cached in Redis.
type DBTitleLookup struct{}

func NewDBTitleLookup() *DBTitleLookup {
	return &DBTitleLookup{}
}

func (l *DBTitleLookup) Titles(ctx context.Context, kind TitleKind, ids []int) (map[int]*AccountTitle, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return LoadTitles(ctx, companyId, kind, ids)
}

// LoadTitles is the batch function behind every TitleLookup.
func LoadTitles(ctx context.Context, companyId string, kind TitleKind, ids []int) (map[int]*AccountTitle, error) {
	db := config.GetDB().WithContext(ctx)
	switch kind {
	case TitleAccountLevel4:
		return level4Titles(ctx, db, companyId, ids)
	case TitleDefaultAccount:
		return defaultAccountTitles(db, companyId, ids)
	case TitleItem:
		return titlesOf(db, companyId, ids, func(i *Item) (int, string, string) { return i.ID, i.Code, i.Title })
	case TitleGodown:
		return titlesOf(db, companyId, ids, func(g *Godown) (int, string, string) { return g.ID, g.Code, g.Title })
	case TitleParentCenter:
		return titlesOf(db, companyId, ids, func(p *ParentCenter) (int, string, string) { return p.ID, p.ParentCode, p.Title })
	case TitleChildCenter:
		return titlesOf(db, companyId, ids, func(c *ChildCenter) (int, string, string) { return c.ID, c.FullCode(), c.Title })
	}
	return map[int]*AccountTitle{}, nil
}

func titlesOf[T any](db *gorm.DB, companyId string, ids []int, pick func(*T) (int, string, string)) (map[int]*AccountTitle, error) {
	out := make(map[int]*AccountTitle, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*T
	if err := db.Where("company_id = ? AND id IN ?", companyId, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		id, code, title := pick(row)
		out[id] = &AccountTitle{ID: id, Code: code, Title: title}
	}
	return out, nil
}

func level4Titles(ctx context.Context, db *gorm.DB, companyId string, ids []int) (map[int]*AccountTitle, error) {
	out := make(map[int]*AccountTitle, len(ids))
	missing := make([]int, 0, len(ids))
	for _, id := range ids {
		cached, err := utils.RetrieveRedis[AccountTitle](ctx, companyId, id)
		if err != nil {
			config.LogError(config.GetLogger(), moduleName, "level4Titles", "retrieve cached title", id, err)
		}
		if cached != nil {
			out[id] = cached
			continue
		}
		missing = append(missing, id)
	}

	loaded, err := titlesOf(db, companyId, missing, func(a *AccountLevel4) (int, string, string) { return a.ID, a.Fullcode, a.Title })
	if err != nil {
		return nil, err
	}
	for id, t := range loaded {
		out[id] = t
		if err := utils.StoreRedis(ctx, companyId, id, t); err != nil {
			config.LogError(config.GetLogger(), moduleName, "level4Titles", "cache title", id, err)
		}
	}
	return out, nil
}

// a role account shows the title of its Level4 leaf when it has one, else of its Level3
func defaultAccountTitles(db *gorm.DB, companyId string, ids []int) (map[int]*AccountTitle, error) {
	out := make(map[int]*AccountTitle, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var accounts []*DefaultAccount
	if err := db.Where("company_id = ? AND id IN ?", companyId, ids).Find(&accounts).Error; err != nil {
		return nil, err
	}
	level3Ids := make([]int, 0, len(accounts))
	level4Ids := make([]int, 0, len(accounts))
	for _, a := range accounts {
		level3Ids = append(level3Ids, a.Level3Id)
		if a.Level4Id != nil {
			level4Ids = append(level4Ids, *a.Level4Id)
		}
	}
	level3, err := titlesOf(db, companyId, utils.UniqueSlice(level3Ids), func(a *AccountLevel3) (int, string, string) { return a.ID, a.FullCode(), a.Title })
	if err != nil {
		return nil, err
	}
	level4, err := titlesOf(db, companyId, utils.UniqueSlice(level4Ids), func(a *AccountLevel4) (int, string, string) { return a.ID, a.Fullcode, a.Title })
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		var t *AccountTitle
		if a.Level4Id != nil {
			t = level4[*a.Level4Id]
		}
		if t == nil {
			t = level3[a.Level3Id]
		}
		if t != nil {
			out[a.ID] = &AccountTitle{ID: a.ID, Code: t.Code, Title: t.Title}
		}
	}
	return out, nil
}

// forgetAccountTitle drops the cached title after a Level4 write.
func forgetAccountTitle(ctx context.Context, companyId string, id int) {
	if err := utils.RemoveRedisItem[AccountTitle](ctx, companyId, id); err != nil {
		config.LogError(config.GetLogger(), moduleName, "forgetAccountTitle", "remove cached title", id, err)
	}
}
