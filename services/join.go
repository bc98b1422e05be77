package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mmdatafocus/fittrack_backend/config"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

// JoinSpec describes one emulated one-to-many relationship: a parent
// collection, its child-link collection and the catalog collection the links
// reference. The store offers no joins, so every relationship is an explicit
// two-phase fetch (query link keys, then batch-resolve catalog records).
type JoinSpec struct {
	ParentCollection  string
	ChildCollection   string
	ParentRefField    string
	CatalogCollection string
	CatalogRefField   string
	// AttachField names the key the resolved catalog record is attached
	// under; ChildrenField names the key the child list is attached under.
	AttachField   string
	ChildrenField string
	// OrderField, when set, orders children ascending with
	// index-of-first-appearance as tiebreak. Links missing the field sort
	// after all links that have it.
	OrderField string
}

var RoutineExercisesJoin = JoinSpec{
	ParentCollection:  models.CollectionRoutines,
	ChildCollection:   models.CollectionRoutineExercises,
	ParentRefField:    "routine_id",
	CatalogCollection: models.CollectionExercises,
	CatalogRefField:   "exercise_id",
	AttachField:       "exercise",
	ChildrenField:     "exercises",
	OrderField:        "order_index",
}

var DietFoodsJoin = JoinSpec{
	ParentCollection:  models.CollectionDiets,
	ChildCollection:   models.CollectionDietFoods,
	ParentRefField:    "diet_id",
	CatalogCollection: models.CollectionFoods,
	CatalogRefField:   "food_id",
	AttachField:       "food",
	ChildrenField:     "foods",
	OrderField:        "order_index",
}

// ChildView is a child-link document with its catalog record resolved.
// Catalog is nil when the reference dangles; that is a degraded field, not
// an error.
type ChildView struct {
	Key     string
	Fields  map[string]any
	Catalog map[string]any
}

// ParentView is a parent document composed with its enriched, ordered child
// list.
type ParentView struct {
	Key      string
	Fields   map[string]any
	Children []ChildView
}

// Map flattens the view for JSON responses, mirroring the shape handlers
// return: parent fields + "id" + the child list under spec.ChildrenField,
// each child carrying its catalog record (or null) under spec.AttachField.
func (v *ParentView) Map(spec JoinSpec) map[string]any {
	out := make(map[string]any, len(v.Fields)+2)
	for k, val := range v.Fields {
		out[k] = val
	}
	out["id"] = v.Key
	children := make([]map[string]any, 0, len(v.Children))
	for _, c := range v.Children {
		cm := make(map[string]any, len(c.Fields)+2)
		for k, val := range c.Fields {
			cm[k] = val
		}
		cm["id"] = c.Key
		if c.Catalog != nil {
			cm[spec.AttachField] = c.Catalog
		} else {
			cm[spec.AttachField] = nil
		}
		children = append(children, cm)
	}
	out[spec.ChildrenField] = children
	return out
}

// FetchWithChildren reconstructs one parent with its ordered, enriched child
// list. An absent parent is NotFound; a parent with zero children returns an
// empty list.
func FetchWithChildren(ctx context.Context, st store.Store, spec JoinSpec, parentKey string) (*ParentView, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	parent, err := st.Get(ctx, spec.ParentCollection, parentKey)
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", spec.ParentCollection, parentKey, err)
	}

	// The store gives no order guarantee here; ordering happens in memory
	// after the catalog resolution pass.
	children, err := st.Query(ctx, spec.ChildCollection, []store.Filter{{Field: spec.ParentRefField, Value: parentKey}}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch children of %s/%s: %w", spec.ParentCollection, parentKey, err)
	}

	catalogKeys := collectCatalogKeys(children, spec.CatalogRefField)
	lookup := resolveCatalog(ctx, st, spec.CatalogCollection, catalogKeys)

	view := &ParentView{Key: parent.Key, Fields: parent.Data, Children: buildChildViews(children, spec, lookup)}
	sortChildren(view.Children, spec.OrderField)
	return view, nil
}

// FetchManyWithChildren extends the single-parent fetch to N parents without
// N round trips: one IN-chunked query over the child collection, one
// combined deduplicated catalog resolution pass, then a scatter back to the
// owning parents. Results are identical to calling FetchWithChildren per
// parent.
func FetchManyWithChildren(ctx context.Context, st store.Store, spec JoinSpec, filters []store.Filter, limit int) ([]*ParentView, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	parents, err := st.Query(ctx, spec.ParentCollection, filters, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", spec.ParentCollection, err)
	}
	return attachChildren(ctx, st, spec, parents)
}

// attachChildren performs the batch-then-scatter phase for a set of already
// fetched parent documents.
func attachChildren(ctx context.Context, st store.Store, spec JoinSpec, parents []store.Document) ([]*ParentView, error) {
	views := make([]*ParentView, 0, len(parents))
	byKey := make(map[string]*ParentView, len(parents))
	parentKeys := make([]string, 0, len(parents))
	for _, p := range parents {
		v := &ParentView{Key: p.Key, Fields: p.Data, Children: []ChildView{}}
		views = append(views, v)
		byKey[p.Key] = v
		parentKeys = append(parentKeys, p.Key)
	}
	if len(parentKeys) == 0 {
		return views, nil
	}

	children := queryChildrenChunked(ctx, st, spec, parentKeys)

	catalogKeys := collectCatalogKeys(children, spec.CatalogRefField)
	lookup := resolveCatalog(ctx, st, spec.CatalogCollection, catalogKeys)

	// scatter: children go back to their parent by reference equality
	for _, cv := range buildChildViews(children, spec, lookup) {
		ref, _ := cv.Fields[spec.ParentRefField].(string)
		if parent, ok := byKey[ref]; ok {
			parent.Children = append(parent.Children, cv)
		}
	}
	for _, v := range views {
		sortChildren(v.Children, spec.OrderField)
	}
	return views, nil
}

// queryChildrenChunked fetches child links for all parents with IN queries
// of at most store.MaxInValues keys. Chunks are issued concurrently (they
// are read-only and commute) and merged in chunk order so results stay
// deterministic. A failed chunk degrades to no children for its parents
// rather than failing the whole aggregate.
func queryChildrenChunked(ctx context.Context, st store.Store, spec JoinSpec, parentKeys []string) []store.Document {
	chunks := utils.ChunkSlice(parentKeys, store.MaxInValues)
	results := make([][]store.Document, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, config.StoreCallTimeout())
			defer cancel()
			docs, err := st.QueryIn(cctx, spec.ChildCollection, spec.ParentRefField, chunk)
			if err != nil {
				config.LogError(config.GetLogger(), "services", "queryChildrenChunked",
					"child chunk fetch failed, degrading to empty", map[string]any{"collection": spec.ChildCollection, "keys": chunk}, err)
				return
			}
			results[i] = docs
		}(i, chunk)
	}
	// all chunks must land before the scatter step
	wg.Wait()

	var merged []store.Document
	for _, docs := range results {
		merged = append(merged, docs...)
	}
	return merged
}

// resolveCatalog batch-resolves catalog records in chunks of at most
// store.MaxBatchGetKeys, concurrently, into a key->record table. A chunk
// that times out degrades its keys to unresolved (the children show a nil
// catalog record); it never fails the aggregate.
func resolveCatalog(ctx context.Context, st store.Store, collection string, keys []string) map[string]map[string]any {
	lookup := make(map[string]map[string]any, len(keys))
	if len(keys) == 0 {
		return lookup
	}

	chunks := utils.ChunkSlice(keys, store.MaxBatchGetKeys)
	results := make([][]store.Document, len(chunks))

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []string) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, config.StoreCallTimeout())
			defer cancel()
			docs, err := st.BatchGet(cctx, collection, chunk)
			if err != nil {
				config.LogError(config.GetLogger(), "services", "resolveCatalog",
					"catalog chunk fetch failed, degrading to unresolved", map[string]any{"collection": collection, "keys": len(chunk)}, err)
				return
			}
			results[i] = docs
		}(i, chunk)
	}
	wg.Wait()

	for _, docs := range results {
		for _, doc := range docs {
			data := doc.Data
			data["id"] = doc.Key
			lookup[doc.Key] = data
		}
	}
	return lookup
}

func collectCatalogKeys(children []store.Document, refField string) []string {
	keys := make([]string, 0, len(children))
	for _, c := range children {
		if ref, ok := c.Data[refField].(string); ok && ref != "" {
			keys = append(keys, ref)
		}
	}
	return utils.UniqueSlice(keys)
}

func buildChildViews(children []store.Document, spec JoinSpec, lookup map[string]map[string]any) []ChildView {
	views := make([]ChildView, 0, len(children))
	for _, c := range children {
		cv := ChildView{Key: c.Key, Fields: c.Data}
		if ref, ok := c.Data[spec.CatalogRefField].(string); ok {
			// dangling references stay nil, never an error
			cv.Catalog = lookup[ref]
		}
		views = append(views, cv)
	}
	return views
}

// sortChildren orders by the explicit order field ascending when present.
// sort.SliceStable keeps index-of-first-appearance as the tiebreak, and
// links without the field sort after all links that carry it.
func sortChildren(children []ChildView, orderField string) {
	if orderField == "" {
		return
	}
	sort.SliceStable(children, func(i, j int) bool {
		vi, iok := asFloat(children[i].Fields[orderField])
		vj, jok := asFloat(children[j].Fields[orderField])
		if iok && jok {
			return vi < vj
		}
		return iok && !jok
	})
}
