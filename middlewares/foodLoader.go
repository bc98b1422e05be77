package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

type foodReader struct {
	store store.Store
}

func (r *foodReader) getFoods(ctx context.Context, keys []string) []*dataloader.Result[*models.Food] {
	docs, err := r.store.BatchGet(ctx, models.CollectionFoods, keys)
	if err != nil {
		return handleError[*models.Food](len(keys), err)
	}

	return generateLoaderResults(docs, keys, func(doc store.Document) (*models.Food, error) {
		var f models.Food
		if err := utils.DecodeDocument(doc.Data, &f); err != nil {
			return nil, err
		}
		f.ID = doc.Key
		return &f, nil
	})
}

func GetFood(ctx context.Context, key string) (*models.Food, error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, utils.ErrorUpstreamUnavailable
	}
	return loaders.FoodLoader.Load(ctx, key)()
}

func GetFoods(ctx context.Context, keys []string) ([]*models.Food, []error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, []error{utils.ErrorUpstreamUnavailable}
	}
	return loaders.FoodLoader.LoadMany(ctx, keys)()
}
