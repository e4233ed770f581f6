package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/erp_backend/models"
)

type titleReader struct {
	companyId string
	kind      models.TitleKind
}

func (r *titleReader) getTitles(ctx context.Context, ids []int) []*dataloader.Result[*models.AccountTitle] {
	titles, err := models.LoadTitles(ctx, r.companyId, r.kind, ids)
	if err != nil {
		return handleError[*models.AccountTitle](len(ids), err)
	}
	results := make([]*dataloader.Result[*models.AccountTitle], 0, len(ids))
	for _, id := range ids {
		results = append(results, &dataloader.Result[*models.AccountTitle]{Data: titles[id]})
	}
	return results
}
