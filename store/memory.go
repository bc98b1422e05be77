package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

// MemoryStore implements the Store port against process memory. It is the
// driver behind STORE_DRIVER=memory and the entire test suite. Transform
// semantics (atomic increments, array-union appends, server timestamps)
// mirror the Firestore adapter exactly, under a single mutex, so concurrent
// callers interleave the same way the services must tolerate in production.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memCollection

	// unavailableIndexes simulates missing composite indexes: ordered
	// queries on the listed collections fail with ErrorIndexUnavailable.
	unavailableIndexes map[string]bool
	// batchGetErrs injects failures into BatchGet per collection.
	batchGetErrs map[string]error

	now func() time.Time
}

type memCollection struct {
	docs  map[string]map[string]any
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections:        make(map[string]*memCollection),
		unavailableIndexes: make(map[string]bool),
		batchGetErrs:       make(map[string]error),
		now:                time.Now,
	}
}

// ForceIndexUnavailable makes ordered queries on collection fail until
// cleared, for exercising the in-memory sort fallback.
func (s *MemoryStore) ForceIndexUnavailable(collection string, unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if unavailable {
		s.unavailableIndexes[collection] = true
	} else {
		delete(s.unavailableIndexes, collection)
	}
}

// ForceBatchGetError makes BatchGet on collection fail with err (nil clears).
func (s *MemoryStore) ForceBatchGetError(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.batchGetErrs, collection)
	} else {
		s.batchGetErrs[collection] = err
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[collection]
	if col == nil {
		return nil, utils.ErrorRecordNotFound
	}
	data, ok := col.docs[key]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return &Document{Key: key, Data: copyFields(data)}, nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, orderBy *Order, limit int) ([]Document, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if orderBy != nil && s.unavailableIndexes[collection] {
		return nil, fmt.Errorf("%w: no composite index for %s order by %s", utils.ErrorIndexUnavailable, collection, orderBy.Field)
	}
	col := s.collections[collection]
	if col == nil {
		return nil, nil
	}
	var docs []Document
	for _, key := range col.order {
		data := col.docs[key]
		if matchesFilters(data, filters) {
			docs = append(docs, Document{Key: key, Data: copyFields(data)})
		}
	}
	if orderBy != nil {
		sort.SliceStable(docs, func(i, j int) bool {
			c := compareValues(docs[i].Data[orderBy.Field], docs[j].Data[orderBy.Field])
			if orderBy.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *MemoryStore) QueryIn(ctx context.Context, collection, field string, values []string) ([]Document, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if len(values) > MaxInValues {
		return nil, fmt.Errorf("%w: %d values for IN filter on %s (max %d)", utils.ErrorBatchLimitExceeded, len(values), collection, MaxInValues)
	}
	if len(values) == 0 {
		return nil, nil
	}
	wanted := make(map[string]bool, len(values))
	for _, v := range values {
		wanted[v] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[collection]
	if col == nil {
		return nil, nil
	}
	var docs []Document
	for _, key := range col.order {
		data := col.docs[key]
		if sv, ok := data[field].(string); ok && wanted[sv] {
			docs = append(docs, Document{Key: key, Data: copyFields(data)})
		}
	}
	return docs, nil
}

func (s *MemoryStore) BatchGet(ctx context.Context, collection string, keys []string) ([]Document, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	if len(keys) > MaxBatchGetKeys {
		return nil, fmt.Errorf("%w: %d keys for batch get on %s (max %d)", utils.ErrorBatchLimitExceeded, len(keys), collection, MaxBatchGetKeys)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.batchGetErrs[collection]; err != nil {
		return nil, err
	}
	col := s.collections[collection]
	if col == nil {
		return nil, nil
	}
	docs := make([]Document, 0, len(keys))
	for _, key := range keys {
		if data, ok := col.docs[key]; ok {
			docs = append(docs, Document{Key: key, Data: copyFields(data)})
		}
	}
	return docs, nil
}

func (s *MemoryStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctxErr(ctx); err != nil {
		return "", err
	}
	key := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(collection, key, data)
	return key, nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, key string, data map[string]any) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if col := s.collections[collection]; col != nil {
		if _, exists := col.docs[key]; exists {
			return utils.ErrorConflict
		}
	}
	s.setLocked(collection, key, data)
	return nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, key string, data map[string]any) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(collection, key, data)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, key string, ops []UpdateOp) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(collection, key, ops)
}

func (s *MemoryStore) Delete(ctx context.Context, collection, key string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[collection]
	if col == nil {
		return nil
	}
	if _, ok := col.docs[key]; !ok {
		return nil
	}
	delete(col.docs, key)
	for i, k := range col.order {
		if k == key {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	return nil
}

// BatchWrite applies writes one by one. Like the provider's client-side
// batching, the group is not atomic: earlier writes stay applied when a
// later one fails.
func (s *MemoryStore) BatchWrite(ctx context.Context, writes []Write) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, w := range writes {
		key := w.Key
		if key == "" {
			key = uuid.NewString()
		}
		var err error
		switch w.Kind {
		case WriteSet:
			s.setLocked(w.Collection, key, w.Data)
		case WriteUpdate:
			err = s.updateLocked(w.Collection, key, w.Ops)
		case WriteDelete:
			if col := s.collections[w.Collection]; col != nil {
				if _, ok := col.docs[key]; ok {
					delete(col.docs, key)
					for i, k := range col.order {
						if k == key {
							col.order = append(col.order[:i], col.order[i+1:]...)
							break
						}
					}
				}
			}
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *MemoryStore) setLocked(collection, key string, data map[string]any) {
	col := s.collections[collection]
	if col == nil {
		col = &memCollection{docs: make(map[string]map[string]any)}
		s.collections[collection] = col
	}
	if _, exists := col.docs[key]; !exists {
		col.order = append(col.order, key)
	}
	col.docs[key] = copyFields(data)
}

func (s *MemoryStore) updateLocked(collection, key string, ops []UpdateOp) error {
	col := s.collections[collection]
	if col == nil {
		return utils.ErrorRecordNotFound
	}
	data, ok := col.docs[key]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	for _, op := range ops {
		switch op.Kind {
		case OpIncrement:
			data[op.Field] = addNumeric(data[op.Field], op.Value)
		case OpArrayUnion:
			existing, _ := data[op.Field].([]any)
			for _, elem := range op.Elems {
				if !containsDeepEqual(existing, elem) {
					existing = append(existing, copyValue(elem))
				}
			}
			data[op.Field] = existing
		case OpServerTimestamp:
			data[op.Field] = s.now()
		default:
			data[op.Field] = copyValue(op.Value)
		}
	}
	return nil
}

func matchesFilters(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !valuesEqual(data[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func containsDeepEqual(list []any, elem any) bool {
	for _, e := range list {
		if reflect.DeepEqual(e, elem) {
			return true
		}
	}
	return false
}

// compareValues orders mixed field values: nil sorts lowest, then numerics,
// times and strings by their natural order. Cross-type comparisons fall back
// to a stable type ordering so sorts stay deterministic.
func compareValues(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
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

func toFloat(v any) (float64, bool) {
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

// addNumeric keeps integer fields integral: int + int stays int64, anything
// touching a float becomes float64. Matches the provider's increment
// behavior.
func addNumeric(existing, delta any) any {
	ei, eIsInt := toInt(existing)
	di, dIsInt := toInt(delta)
	if eIsInt && dIsInt {
		return ei + di
	}
	ef, _ := toFloat(existing)
	df, _ := toFloat(delta)
	return ef + df
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func copyFields(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return copyFields(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrorUpstreamUnavailable, err)
	}
	return nil
}
