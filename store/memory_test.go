package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fittrack_backend/utils"
)

func TestCreateRejectsExistingKey(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.Create(ctx, "ledgers", "2026-09-01", map[string]any{"total": int64(10)}))
	err := st.Create(ctx, "ledgers", "2026-09-01", map[string]any{"total": int64(20)})
	require.ErrorIs(t, err, utils.ErrorConflict)

	doc, err := st.Get(ctx, "ledgers", "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, int64(10), doc.Data["total"], "losing create must not overwrite")
}

func TestGetMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	_, err := st.Get(ctx, "users", "nobody")
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestUpdateTransforms(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Set(ctx, "ledgers", "d1", map[string]any{
		"calories": int64(100),
		"protein":  12.5,
		"logs":     []any{map[string]any{"food_name": "oats"}},
	}))

	err := st.Update(ctx, "ledgers", "d1", []UpdateOp{
		Increment("calories", int64(50)),
		Increment("protein", 7.5),
		ArrayUnion("logs", map[string]any{"food_name": "banana"}),
	})
	require.NoError(t, err)

	doc, err := st.Get(ctx, "ledgers", "d1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), doc.Data["calories"])
	assert.Equal(t, 20.0, doc.Data["protein"])
	assert.Len(t, doc.Data["logs"], 2)
}

func TestArrayUnionDeduplicatesEqualElements(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Set(ctx, "ledgers", "d1", map[string]any{"logs": []any{}}))

	elem := map[string]any{"food_name": "rice", "calories": int64(130)}
	for i := 0; i < 3; i++ {
		require.NoError(t, st.Update(ctx, "ledgers", "d1", []UpdateOp{ArrayUnion("logs", elem)}))
	}

	doc, err := st.Get(ctx, "ledgers", "d1")
	require.NoError(t, err)
	assert.Len(t, doc.Data["logs"], 1, "equal elements collapse, set semantics")
}

func TestUpdateMissingDocIsNotFound(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	err := st.Update(ctx, "ledgers", "gone", []UpdateOp{Increment("calories", int64(1))})
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)
}

func TestQueryFiltersAndOrder(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, st.Set(ctx, "routines", key, map[string]any{
			"is_public":  key != "b",
			"created_at": base.Add(time.Duration(i) * time.Hour),
		}))
	}

	docs, err := st.Query(ctx, "routines", []Filter{{Field: "is_public", Value: true}},
		&Order{Field: "created_at", Desc: true}, 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0].Key)
	assert.Equal(t, "a", docs[1].Key)

	docs, err = st.Query(ctx, "routines", nil, &Order{Field: "created_at", Desc: true}, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c", docs[0].Key)
}

func TestQueryInEnforcesValueCap(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	values := make([]string, MaxInValues+1)
	for i := range values {
		values[i] = "v"
	}
	_, err := st.QueryIn(ctx, "routine_exercises", "routine_id", values)
	require.ErrorIs(t, err, utils.ErrorBatchLimitExceeded)

	_, err = st.QueryIn(ctx, "routine_exercises", "routine_id", values[:MaxInValues])
	require.NoError(t, err)
}

func TestBatchGetEnforcesKeyCap(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	keys := make([]string, MaxBatchGetKeys+1)
	for i := range keys {
		keys[i] = "k"
	}
	_, err := st.BatchGet(ctx, "exercises", keys)
	require.ErrorIs(t, err, utils.ErrorBatchLimitExceeded)
}

func TestBatchGetSkipsMissingKeys(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Set(ctx, "exercises", "e1", map[string]any{"name": "Sentadilla"}))

	docs, err := st.BatchGet(ctx, "exercises", []string{"e1", "missing"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "e1", docs[0].Key)
}

func TestBatchWriteIsNotAtomic(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Set(ctx, "routines", "r1", map[string]any{"name": "PPL"}))

	err := st.BatchWrite(ctx, []Write{
		{Kind: WriteSet, Collection: "routine_exercises", Key: "l1", Data: map[string]any{"routine_id": "r1"}},
		{Kind: WriteUpdate, Collection: "routines", Key: "missing", Ops: []UpdateOp{SetField("name", "x")}},
	})
	require.ErrorIs(t, err, utils.ErrorRecordNotFound)

	// the failing write does not roll back the earlier one
	_, getErr := st.Get(ctx, "routine_exercises", "l1")
	assert.NoError(t, getErr)
}

func TestForceIndexUnavailableFailsOrderedQueriesOnly(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Set(ctx, "workouts", "w1", map[string]any{"user_id": "u1"}))
	st.ForceIndexUnavailable("workouts", true)

	_, err := st.Query(ctx, "workouts", nil, &Order{Field: "scheduled_date", Desc: true}, 0)
	require.ErrorIs(t, err, utils.ErrorIndexUnavailable)

	docs, err := st.Query(ctx, "workouts", nil, nil, 0)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestReadsCopyDocumentData(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.Set(ctx, "users", "u1", map[string]any{"xp": int64(100)}))

	doc, err := st.Get(ctx, "users", "u1")
	require.NoError(t, err)
	doc.Data["xp"] = int64(999)

	again, err := st.Get(ctx, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Data["xp"], "callers must not mutate stored state")
}
