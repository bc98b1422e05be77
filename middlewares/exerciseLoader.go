package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

type exerciseReader struct {
	store store.Store
}

func (r *exerciseReader) getExercises(ctx context.Context, keys []string) []*dataloader.Result[*models.Exercise] {
	docs, err := r.store.BatchGet(ctx, models.CollectionExercises, keys)
	if err != nil {
		return handleError[*models.Exercise](len(keys), err)
	}

	return generateLoaderResults(docs, keys, func(doc store.Document) (*models.Exercise, error) {
		var e models.Exercise
		if err := utils.DecodeDocument(doc.Data, &e); err != nil {
			return nil, err
		}
		e.ID = doc.Key
		return &e, nil
	})
}

func GetExercise(ctx context.Context, key string) (*models.Exercise, error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, utils.ErrorUpstreamUnavailable
	}
	return loaders.ExerciseLoader.Load(ctx, key)()
}

func GetExercises(ctx context.Context, keys []string) ([]*models.Exercise, []error) {
	loaders := For(ctx)
	if loaders == nil {
		return nil, []error{utils.ErrorUpstreamUnavailable}
	}
	return loaders.ExerciseLoader.LoadMany(ctx, keys)()
}
