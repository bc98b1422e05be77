package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
)

// deadlineRecordingStore wraps the memory store and records every call that
// arrives without a context deadline. The service layer must bound each
// store call, because gin request contexts never carry one.
type deadlineRecordingStore struct {
	store.Store

	mu        sync.Mutex
	unbounded []string
}

func (s *deadlineRecordingStore) check(ctx context.Context, op string) {
	if _, ok := ctx.Deadline(); !ok {
		s.mu.Lock()
		s.unbounded = append(s.unbounded, op)
		s.mu.Unlock()
	}
}

func (s *deadlineRecordingStore) Get(ctx context.Context, collection, key string) (*store.Document, error) {
	s.check(ctx, "Get "+collection)
	return s.Store.Get(ctx, collection, key)
}

func (s *deadlineRecordingStore) Query(ctx context.Context, collection string, filters []store.Filter, orderBy *store.Order, limit int) ([]store.Document, error) {
	s.check(ctx, "Query "+collection)
	return s.Store.Query(ctx, collection, filters, orderBy, limit)
}

func (s *deadlineRecordingStore) QueryIn(ctx context.Context, collection, field string, values []string) ([]store.Document, error) {
	s.check(ctx, "QueryIn "+collection)
	return s.Store.QueryIn(ctx, collection, field, values)
}

func (s *deadlineRecordingStore) BatchGet(ctx context.Context, collection string, keys []string) ([]store.Document, error) {
	s.check(ctx, "BatchGet "+collection)
	return s.Store.BatchGet(ctx, collection, keys)
}

func (s *deadlineRecordingStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	s.check(ctx, "Add "+collection)
	return s.Store.Add(ctx, collection, data)
}

func (s *deadlineRecordingStore) Create(ctx context.Context, collection, key string, data map[string]any) error {
	s.check(ctx, "Create "+collection)
	return s.Store.Create(ctx, collection, key, data)
}

func (s *deadlineRecordingStore) Set(ctx context.Context, collection, key string, data map[string]any) error {
	s.check(ctx, "Set "+collection)
	return s.Store.Set(ctx, collection, key, data)
}

func (s *deadlineRecordingStore) Update(ctx context.Context, collection, key string, ops []store.UpdateOp) error {
	s.check(ctx, "Update "+collection)
	return s.Store.Update(ctx, collection, key, ops)
}

func (s *deadlineRecordingStore) Delete(ctx context.Context, collection, key string) error {
	s.check(ctx, "Delete "+collection)
	return s.Store.Delete(ctx, collection, key)
}

func (s *deadlineRecordingStore) BatchWrite(ctx context.Context, writes []store.Write) error {
	s.check(ctx, "BatchWrite")
	return s.Store.BatchWrite(ctx, writes)
}

// Every service entry point must hand the store a deadline-bounded context,
// even when the caller's context has none.
func TestServiceStoreCallsAreDeadlineBounded(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	st := &deadlineRecordingStore{Store: mem}

	require.NoError(t, mem.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(0)}))
	seedRatedRoutine(t, mem, "r1")
	seedLink(t, mem, "l1", "r1", "e1", 0)
	seedExercise(t, mem, "e1", "Press")

	_, err := FetchWithChildren(ctx, st, RoutineExercisesJoin, "r1")
	require.NoError(t, err)

	_, err = FetchManyWithChildren(ctx, st, RoutineExercisesJoin, nil, 0)
	require.NoError(t, err)

	_, err = ListOwnedAndPublicWithChildren(ctx, st, RoutineExercisesJoin, "creator_id", "author", 0, 10)
	require.NoError(t, err)

	_, err = AppendLogEntry(ctx, st, "u1", "2026-09-01", models.NutritionLogEntry{
		FoodName: "Oats", Calories: 300, Protein: 10, Carbs: 50, Fat: 5, LoggedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = GetDailyStats(ctx, st, "u1", "2026-09-01")
	require.NoError(t, err)

	require.NoError(t, UpdateCalorieGoal(ctx, st, "u1", 2500))

	_, err = RateContent(ctx, st, "u1", models.RatingInput{
		ContentType: models.ContentTypeRoutine, ContentId: "r1", Score: 4,
	})
	require.NoError(t, err)

	_, err = GetFeed(ctx, st, 0, 10)
	require.NoError(t, err)

	_, err = GrantXP(ctx, st, "u1", 10)
	require.NoError(t, err)

	_, err = ListScheduledByUser(ctx, st, "u1", 0)
	require.NoError(t, err)

	_, err = ScheduleWorkout(ctx, st, "u1", "r1", time.Now().UTC(), "")
	require.NoError(t, err)

	_, err = CompleteSession(ctx, st, "u1", models.WorkoutSessionLog{RoutineId: "r1"})
	require.NoError(t, err)

	newID, err := ImportContent(ctx, st, "u1", models.ContentRef{Type: models.ContentTypeRoutine, ID: "r1"})
	require.NoError(t, err)

	require.NoError(t, DeleteParentCascade(ctx, st, RoutineExercisesJoin, "u1", newID))

	st.mu.Lock()
	defer st.mu.Unlock()
	assert.Empty(t, st.unbounded, "store calls issued without a deadline")
}
