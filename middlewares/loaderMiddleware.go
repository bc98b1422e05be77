package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders wrap your data loaders to inject via middleware
type Loaders struct {
	ExerciseLoader *dataloader.Loader[string, *models.Exercise]
	FoodLoader     *dataloader.Loader[string, *models.Food]
}

// NewLoaders instantiates data loaders for the middleware. Batch capacity
// matches the store's batch-get key cap so one flush never exceeds one
// backend call.
func NewLoaders(st store.Store) *Loaders {
	exerciseReader := &exerciseReader{store: st}
	foodReader := &foodReader{store: st}

	return &Loaders{
		ExerciseLoader: dataloader.NewBatchedLoader(exerciseReader.getExercises,
			dataloader.WithWait[string, *models.Exercise](time.Millisecond),
			dataloader.WithBatchCapacity[string, *models.Exercise](store.MaxBatchGetKeys)),
		FoodLoader: dataloader.NewBatchedLoader(foodReader.getFoods,
			dataloader.WithWait[string, *models.Food](time.Millisecond),
			dataloader.WithBatchCapacity[string, *models.Food](store.MaxBatchGetKeys)),
	}
}

func LoaderMiddleware(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		loader := NewLoaders(st)
		ctx := context.WithValue(c.Request.Context(), loadersKey, loader)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the request's loaders, or nil when the loader middleware did
// not run (store still connecting at startup).
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults turns a batch-get response into per-key dataloader
// results. Keys with no document resolve to nil rather than an error; a
// dangling catalog reference is data, not a failure.
func generateLoaderResults[T any](docs []store.Document, keys []string, decode func(store.Document) (*T, error)) []*dataloader.Result[*T] {
	resultMap := make(map[string]*T, len(docs))
	for _, doc := range docs {
		item, err := decode(doc)
		if err != nil {
			continue
		}
		resultMap[doc.Key] = item
	}

	loaderResults := make([]*dataloader.Result[*T], 0, len(keys))
	for _, key := range keys {
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: resultMap[key]})
	}
	return loaderResults
}
