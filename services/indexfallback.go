package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmdatafocus/fittrack_backend/config"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

// storeCtx bounds one service operation with the configured per-call store
// timeout. Gin never deadlines request contexts, so without this a hung
// store RPC would block its handler indefinitely.
func storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, config.StoreCallTimeout())
}

// warnedIndexes tracks (collection, orderBy) pairs we already warned about,
// so a missing composite index shows up in the logs without flooding them.
var warnedIndexes sync.Map

// queryOrdered runs an ordered query, falling back to an unsorted query plus
// an in-memory sort when the store reports the composite index as missing.
// The fallback keeps requests serving but silently masks the missing index,
// so it always emits a warning (once per pair) and can be turned into a hard
// error with FF_STRICT_INDEXES for pre-production environments.
func queryOrdered(ctx context.Context, st store.Store, collection string, filters []store.Filter, orderBy store.Order, limit int) ([]store.Document, error) {
	docs, err := st.Query(ctx, collection, filters, &orderBy, limit)
	if err == nil {
		return docs, nil
	}
	if !errors.Is(err, utils.ErrorIndexUnavailable) {
		return nil, err
	}
	if config.StrictIndexes() {
		return nil, err
	}
	warnIndexUnavailable(collection, orderBy)

	// Re-issue without the sort clause. The limit moves to after the
	// in-memory sort; applying it to the unsorted query would drop the
	// wrong documents.
	docs, err = st.Query(ctx, collection, filters, nil, 0)
	if err != nil {
		return nil, err
	}
	sortDocuments(docs, orderBy)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func warnIndexUnavailable(collection string, orderBy store.Order) {
	key := collection + "/" + orderBy.Field
	if _, loaded := warnedIndexes.LoadOrStore(key, true); loaded {
		return
	}
	config.LogWarn(config.GetLogger(), "services", "queryOrdered",
		"composite index unavailable, sorting in memory; provision the index",
		map[string]any{"collection": collection, "orderBy": orderBy.Field}, "index fallback")
}

// sortDocuments sorts in place by the order field, replicating the store's
// server-side ordering. Missing values sort as lowest priority. Stability
// preserves the store's return order for ties.
func sortDocuments(docs []store.Document, orderBy store.Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareFieldValues(docs[i].Data[orderBy.Field], docs[j].Data[orderBy.Field])
		if orderBy.Desc {
			return c > 0
		}
		return c < 0
	})
}

// compareFieldValues orders two document field values the way the store
// would: nil lowest, then by natural order. Timestamps may arrive as
// time.Time from the store or as RFC3339 strings from older documents.
func compareFieldValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	at, aIsTime := asTime(a)
	bt, bIsTime := asTime(b)
	if aIsTime && bIsTime {
		switch {
		case at.Before(bt):
			return -1
		case at.After(bt):
			return 1
		default:
			return 0
		}
	}
	af, aIsNum := asFloat(a)
	bf, bIsNum := asFloat(b)
	if aIsNum && bIsNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as := fmt.Sprint(a)
	bs := fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
