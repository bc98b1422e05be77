package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

func TestXpForSession(t *testing.T) {
	assert.Equal(t, int64(125), xpForSession(250))
	assert.Equal(t, int64(50), xpForSession(0), "unreported calories earn the flat grant")
	assert.Equal(t, int64(0), xpForSession(1), "integer division truncates")
}

func TestCompleteSessionGrantsXp(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(80)}))

	resp, err := CompleteSession(ctx, st, "u1", models.WorkoutSessionLog{
		RoutineId:       "r1",
		DurationSeconds: 3600,
		CaloriesBurned:  100,
		Logs: []models.WorkoutSetLog{
			{ExerciseId: "e1", SetNumber: 1, Reps: 10, WeightKg: 60},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50), resp.XpGained)
	assert.Equal(t, int64(130), resp.NewTotalXp)
	assert.Equal(t, 2, resp.NewLevel)
	assert.True(t, resp.LevelUp)
	assert.Equal(t, models.WorkoutStatusCompleted, resp.Workout.Status)
	assert.Len(t, resp.Workout.Logs, 1)

	workouts, err := ListScheduledByUser(ctx, st, "u1", 0)
	require.NoError(t, err)
	require.Len(t, workouts, 1)
	assert.Equal(t, models.WorkoutStatusCompleted, workouts[0].Status)
}

func TestListScheduledByUserSortsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	// insertion order is oldest first; the list must not rely on it
	for i, key := range []string{"old", "mid", "new"} {
		require.NoError(t, st.Set(ctx, models.CollectionScheduledWorkouts, key, map[string]any{
			"user_id":        "u1",
			"status":         "pending",
			"scheduled_date": base.Add(time.Duration(i) * 24 * time.Hour),
			"created_at":     base,
		}))
	}
	require.NoError(t, st.Set(ctx, models.CollectionScheduledWorkouts, "foreign", map[string]any{
		"user_id":        "u2",
		"status":         "pending",
		"scheduled_date": base.Add(99 * 24 * time.Hour),
		"created_at":     base,
	}))

	workouts, err := ListScheduledByUser(ctx, st, "u1", 0)
	require.NoError(t, err)
	require.Len(t, workouts, 3)
	assert.Equal(t, "new", workouts[0].ID)
	assert.Equal(t, "old", workouts[2].ID)

	limited, err := ListScheduledByUser(ctx, st, "u1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// The per-user workout list sorts in memory, so it must keep working when
// the backend has no composite index for (user_id, scheduled_date).
func TestListScheduledByUserSurvivesMissingIndex(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionScheduledWorkouts, "w1", map[string]any{
		"user_id":        "u1",
		"status":         "pending",
		"scheduled_date": time.Now().UTC(),
		"created_at":     time.Now().UTC(),
	}))
	st.ForceIndexUnavailable(models.CollectionScheduledWorkouts, true)

	workouts, err := ListScheduledByUser(ctx, st, "u1", 0)
	require.NoError(t, err)
	assert.Len(t, workouts, 1)
}

func TestCompleteScheduledChecksOwnership(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(0)}))
	require.NoError(t, st.Set(ctx, models.CollectionScheduledWorkouts, "w1", map[string]any{
		"user_id":        "owner",
		"status":         "pending",
		"scheduled_date": time.Now().UTC(),
		"created_at":     time.Now().UTC(),
	}))

	_, err := CompleteScheduled(ctx, st, "u1", "w1", models.WorkoutSessionLog{RoutineId: "r1"})
	require.ErrorIs(t, err, utils.ErrorNotAuthorized)
}

func TestCompleteSessionRecordsRoutineRating(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(0)}))
	require.NoError(t, st.Set(ctx, models.CollectionRoutines, "r1", map[string]any{
		"name": "Full Body", "creator_id": "author", "is_public": true,
	}))

	resp, err := CompleteSession(ctx, st, "u1", models.WorkoutSessionLog{
		RoutineId:  "r1",
		Difficulty: "hard",
		Rating:     4,
		Notes:      "tough finish",
	})
	require.NoError(t, err)
	assert.Equal(t, "Difficulty: hard, Rating: 4/5. Notes: tough finish", resp.Workout.Note)

	ratings, err := st.Query(ctx, models.CollectionContentRatings, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	assert.Equal(t, "u1", ratings[0].Data["rater_id"])
	assert.Equal(t, "r1", ratings[0].Data["content_id"])

	routine, err := st.Get(ctx, models.CollectionRoutines, "r1")
	require.NoError(t, err)
	sum, _ := asFloat(routine.Data["rating_sum"])
	count, _ := asFloat(routine.Data["rating_count"])
	assert.Equal(t, 4.0, sum)
	assert.Equal(t, 1.0, count)

	// a later session re-rates: the record is rewritten, not duplicated
	_, err = CompleteSession(ctx, st, "u1", models.WorkoutSessionLog{RoutineId: "r1", Rating: 5})
	require.NoError(t, err)
	ratings, err = st.Query(ctx, models.CollectionContentRatings, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	routine, err = st.Get(ctx, models.CollectionRoutines, "r1")
	require.NoError(t, err)
	sum, _ = asFloat(routine.Data["rating_sum"])
	count, _ = asFloat(routine.Data["rating_count"])
	assert.Equal(t, 5.0, sum)
	assert.Equal(t, 1.0, count)
}

func TestCompleteSessionSkipsUnsetRating(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(0)}))
	require.NoError(t, st.Set(ctx, models.CollectionRoutines, "r1", map[string]any{"name": "Full Body"}))

	resp, err := CompleteSession(ctx, st, "u1", models.WorkoutSessionLog{RoutineId: "r1", Notes: "plain"})
	require.NoError(t, err)
	assert.Equal(t, "plain", resp.Workout.Note, "unset rating and difficulty leave the note untouched")

	ratings, err := st.Query(ctx, models.CollectionContentRatings, nil, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, ratings)
}

// A rating against a vanished routine must never undo the stored workout.
func TestCompleteSessionSurvivesMissingRoutineRating(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(0)}))

	resp, err := CompleteSession(ctx, st, "u1", models.WorkoutSessionLog{RoutineId: "gone", Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, models.WorkoutStatusCompleted, resp.Workout.Status)

	ratings, err := st.Query(ctx, models.CollectionContentRatings, nil, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, ratings)
}

func TestCompleteScheduledRecordsRoutineRating(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(0)}))
	require.NoError(t, st.Set(ctx, models.CollectionRoutines, "r1", map[string]any{"name": "Full Body"}))
	require.NoError(t, st.Set(ctx, models.CollectionScheduledWorkouts, "w1", map[string]any{
		"user_id":        "u1",
		"routine_id":     "r1",
		"status":         "pending",
		"scheduled_date": time.Now().UTC(),
		"created_at":     time.Now().UTC(),
	}))

	resp, err := CompleteScheduled(ctx, st, "u1", "w1", models.WorkoutSessionLog{
		RoutineId:  "r1",
		Difficulty: "easy",
		Rating:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Difficulty: easy, Rating: 3/5. Notes: ", resp.Workout.Note)

	ratings, err := st.Query(ctx, models.CollectionContentRatings, nil, nil, 0)
	require.NoError(t, err)
	require.Len(t, ratings, 1)
	routine, err := st.Get(ctx, models.CollectionRoutines, "r1")
	require.NoError(t, err)
	sum, _ := asFloat(routine.Data["rating_sum"])
	assert.Equal(t, 3.0, sum)
}

func TestCompleteScheduledMarksDoneAndGrants(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionUsers, "u1", map[string]any{"xp": int64(0)}))
	require.NoError(t, st.Set(ctx, models.CollectionScheduledWorkouts, "w1", map[string]any{
		"user_id":        "u1",
		"status":         "pending",
		"scheduled_date": time.Now().UTC(),
		"created_at":     time.Now().UTC(),
	}))

	resp, err := CompleteScheduled(ctx, st, "u1", "w1", models.WorkoutSessionLog{
		RoutineId:      "r1",
		CaloriesBurned: 300,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150), resp.XpGained)
	assert.Equal(t, models.WorkoutStatusCompleted, resp.Workout.Status)

	doc, err := st.Get(ctx, models.CollectionScheduledWorkouts, "w1")
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Data["status"])
}
