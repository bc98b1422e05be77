package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

func seedExercise(t *testing.T, st *store.MemoryStore, key, name string) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), models.CollectionExercises, key, map[string]any{
		"name":       name,
		"created_at": time.Now().UTC(),
	}))
}

func seedRoutine(t *testing.T, st *store.MemoryStore, key, creator string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, st.Set(context.Background(), models.CollectionRoutines, key, map[string]any{
		"name":       "routine " + key,
		"creator_id": creator,
		"is_public":  false,
		"created_at": createdAt,
	}))
}

func seedLink(t *testing.T, st *store.MemoryStore, key, routineKey, exerciseKey string, orderIndex any) {
	t.Helper()
	data := map[string]any{
		"routine_id":  routineKey,
		"exercise_id": exerciseKey,
	}
	if orderIndex != nil {
		data["order_index"] = orderIndex
	}
	require.NoError(t, st.Set(context.Background(), models.CollectionRoutineExercises, key, data))
}

func TestFetchWithChildrenResolvesCatalog(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedExercise(t, st, "e1", "Sentadilla")
	seedRoutine(t, st, "r1", "u1", time.Now().UTC())
	seedLink(t, st, "l1", "r1", "e1", 0)
	seedLink(t, st, "other", "r2", "e1", 0)

	view, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, "r1")
	require.NoError(t, err)
	require.Len(t, view.Children, 1, "only links referencing the parent belong to it")
	assert.Equal(t, "l1", view.Children[0].Key)
	require.NotNil(t, view.Children[0].Catalog)
	assert.Equal(t, "Sentadilla", view.Children[0].Catalog["name"])
}

func TestFetchWithChildrenDanglingReferenceIsNil(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedRoutine(t, st, "r1", "u1", time.Now().UTC())
	seedLink(t, st, "l1", "r1", "deleted-exercise", 0)

	view, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, "r1")
	require.NoError(t, err)
	require.Len(t, view.Children, 1)
	assert.Nil(t, view.Children[0].Catalog, "dangling reference degrades, never errors")
}

func TestFetchWithChildrenMissingParent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	_, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, "nope")
	require.Error(t, err)
}

func TestFetchWithChildrenOrdersByOrderIndex(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedRoutine(t, st, "r1", "u1", time.Now().UTC())
	seedExercise(t, st, "e1", "a")
	// insertion order deliberately scrambled; one link has no order_index
	seedLink(t, st, "l-third", "r1", "e1", 2)
	seedLink(t, st, "l-none", "r1", "e1", nil)
	seedLink(t, st, "l-first", "r1", "e1", 0)
	seedLink(t, st, "l-second", "r1", "e1", 1)

	view, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, "r1")
	require.NoError(t, err)
	keys := make([]string, 0, len(view.Children))
	for _, c := range view.Children {
		keys = append(keys, c.Key)
	}
	assert.Equal(t, []string{"l-first", "l-second", "l-third", "l-none"}, keys,
		"order_index ascending, links without it last")
}

// The chunked aggregate path must be indistinguishable from fetching each
// parent individually, at sizes on both sides of the chunk boundary.
func TestFetchManyMatchesPerParentFetch(t *testing.T) {
	for _, parentCount := range []int{9, 10, 11, 21} {
		parentCount := parentCount
		t.Run(fmt.Sprintf("%d_parents", parentCount), func(t *testing.T) {
			ctx := context.Background()
			st := store.NewMemoryStore()
			seedExercise(t, st, "e1", "Sentadilla")
			seedExercise(t, st, "e2", "Peso Muerto")

			keys := make([]string, 0, parentCount)
			for i := 0; i < parentCount; i++ {
				rk := fmt.Sprintf("r%02d", i)
				keys = append(keys, rk)
				seedRoutine(t, st, rk, "u1", time.Now().UTC())
				seedLink(t, st, rk+"-l0", rk, "e1", 0)
				seedLink(t, st, rk+"-l1", rk, "e2", 1)
			}

			many, err := FetchManyWithChildren(ctx, st, RoutineExercisesJoin, nil, 0)
			require.NoError(t, err)
			require.Len(t, many, parentCount)

			byKey := make(map[string]*ParentView, len(many))
			for _, v := range many {
				byKey[v.Key] = v
			}
			for _, rk := range keys {
				single, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, rk)
				require.NoError(t, err)
				batched, ok := byKey[rk]
				require.True(t, ok, "parent %s missing from aggregate", rk)
				require.Len(t, batched.Children, len(single.Children))
				for i := range single.Children {
					assert.Equal(t, single.Children[i].Key, batched.Children[i].Key)
					assert.Equal(t, single.Children[i].Catalog, batched.Children[i].Catalog)
				}
			}
		})
	}
}

func TestFetchManyDegradesOnCatalogFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedExercise(t, st, "e1", "Sentadilla")
	seedRoutine(t, st, "r1", "u1", time.Now().UTC())
	seedLink(t, st, "l1", "r1", "e1", 0)
	st.ForceBatchGetError(models.CollectionExercises, fmt.Errorf("backend down"))

	views, err := FetchManyWithChildren(ctx, st, RoutineExercisesJoin, nil, 0)
	require.NoError(t, err, "catalog failure degrades, it does not fail the aggregate")
	require.Len(t, views, 1)
	require.Len(t, views[0].Children, 1)
	assert.Nil(t, views[0].Children[0].Catalog)
}

func TestParentViewMapShape(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedExercise(t, st, "e1", "Sentadilla")
	seedRoutine(t, st, "r1", "u1", time.Now().UTC())
	seedLink(t, st, "l1", "r1", "e1", 0)

	view, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, "r1")
	require.NoError(t, err)
	m := view.Map(RoutineExercisesJoin)
	assert.Equal(t, "r1", m["id"])
	children, ok := m["exercises"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, children, 1)
	assert.Equal(t, "l1", children[0]["id"])
	require.NotNil(t, children[0]["exercise"])
}

// Link documents written from the typed models must carry exactly the field
// names the join layer queries and sorts by, and none of the view-only
// fields.
func TestTypedLinkDocumentsJoinCleanly(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	seedExercise(t, st, "e1", "Sentadilla")

	day, order, sets := 1, 0, 3
	parentData, err := utils.EncodeDocument(models.Routine{
		Name: "Full Body", CreatorId: "u1", IsPublic: true, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, models.CollectionRoutines, "r1", parentData))

	linkData, err := utils.EncodeDocument(models.RoutineExercise{
		RoutineId:  "r1",
		ExerciseId: "e1",
		DayOfWeek:  &day,
		OrderIndex: &order,
		TargetSets: &sets,
	})
	require.NoError(t, err)
	assert.NotContains(t, linkData, "exercise", "resolved catalog record never persists")
	assert.NotContains(t, linkData, "id", "document key never persists as a field")
	require.NoError(t, st.Set(ctx, models.CollectionRoutineExercises, "l1", linkData))

	view, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Full Body", view.Fields["name"])
	require.Len(t, view.Children, 1)
	assert.Equal(t, "e1", view.Children[0].Fields["exercise_id"])
	require.NotNil(t, view.Children[0].Catalog)
	assert.Equal(t, "Sentadilla", view.Children[0].Catalog["name"])
}
