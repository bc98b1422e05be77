package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mmdatafocus/fittrack_backend/config"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

// ListScheduledByUser returns a user's workouts newest first. The query
// filters by a single field and sorts in memory, so it never needs a
// composite index regardless of backend.
func ListScheduledByUser(ctx context.Context, st store.Store, userID string, limit int) ([]models.ScheduledWorkout, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	docs, err := st.Query(ctx, models.CollectionScheduledWorkouts, []store.Filter{
		{Field: "user_id", Value: userID},
	}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list workouts for %s: %w", userID, err)
	}

	workouts := make([]models.ScheduledWorkout, 0, len(docs))
	for _, doc := range docs {
		var w models.ScheduledWorkout
		if err := utils.DecodeDocument(doc.Data, &w); err != nil {
			return nil, fmt.Errorf("decode workout %s: %w", doc.Key, err)
		}
		w.ID = doc.Key
		if w.Logs == nil {
			w.Logs = []models.WorkoutSetLog{}
		}
		workouts = append(workouts, w)
	}
	sort.SliceStable(workouts, func(i, j int) bool {
		return workouts[i].ScheduledDate.After(workouts[j].ScheduledDate)
	})
	if limit > 0 && len(workouts) > limit {
		workouts = workouts[:limit]
	}
	return workouts, nil
}

// ScheduleWorkout stores a planned session for later completion.
func ScheduleWorkout(ctx context.Context, st store.Store, userID string, routineID string, date time.Time, note string) (*models.ScheduledWorkout, error) {
	w := models.ScheduledWorkout{
		UserId:        userID,
		RoutineId:     routineID,
		ScheduledDate: date.UTC(),
		Status:        models.WorkoutStatusPending,
		Note:          note,
		Logs:          []models.WorkoutSetLog{},
		CreatedAt:     time.Now().UTC(),
	}
	data, err := utils.EncodeDocument(w)
	if err != nil {
		return nil, fmt.Errorf("encode workout: %w", err)
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	key, err := st.Add(ctx, models.CollectionScheduledWorkouts, data)
	if err != nil {
		return nil, fmt.Errorf("schedule workout: %w", err)
	}
	w.ID = key
	return &w, nil
}

// xpForSession values a finished workout. Effort is read from calories when
// the client reports them, otherwise every session is worth a flat grant so
// quick-logged workouts still progress the user.
func xpForSession(caloriesBurned float64) int64 {
	if caloriesBurned > 0 {
		return int64(caloriesBurned / 2)
	}
	return 50
}

// sessionNote folds the quick-log feedback fields into the workout note so
// difficulty and rating survive on the workout document itself.
func sessionNote(in models.WorkoutSessionLog) string {
	if in.Difficulty == "" && in.Rating == 0 {
		return in.Notes
	}
	return fmt.Sprintf("Difficulty: %s, Rating: %d/5. Notes: %s", in.Difficulty, in.Rating, in.Notes)
}

// recordSessionRating upserts the rater's score for the routine just
// completed, through the same single-writer path every other rating takes.
// A failure here must not undo an already-stored workout, so it only warns.
func recordSessionRating(ctx context.Context, st store.Store, userID, routineID string, rating int) {
	if rating < 1 || routineID == "" {
		return
	}
	_, err := RateContent(ctx, st, userID, models.RatingInput{
		ContentType: models.ContentTypeRoutine,
		ContentId:   routineID,
		Score:       rating,
	})
	if err != nil {
		config.LogWarn(config.GetLogger(), "services", "recordSessionRating",
			"session rating not recorded", map[string]any{"routine": routineID}, err.Error())
	}
}

// CompleteSession records a finished workout with its set logs embedded in
// the workout document, grants XP for it and reports the progression
// outcome in one response.
func CompleteSession(ctx context.Context, st store.Store, userID string, in models.WorkoutSessionLog) (*models.WorkoutCompletionResponse, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	logs := in.Logs
	if logs == nil {
		logs = []models.WorkoutSetLog{}
	}
	w := models.ScheduledWorkout{
		UserId:          userID,
		RoutineId:       in.RoutineId,
		ScheduledDate:   time.Now().UTC(),
		Status:          models.WorkoutStatusCompleted,
		Note:            sessionNote(in),
		DurationSeconds: in.DurationSeconds,
		CaloriesBurned:  in.CaloriesBurned,
		Logs:            logs,
		CreatedAt:       time.Now().UTC(),
	}
	data, err := utils.EncodeDocument(w)
	if err != nil {
		return nil, fmt.Errorf("encode workout: %w", err)
	}
	key, err := st.Add(ctx, models.CollectionScheduledWorkouts, data)
	if err != nil {
		return nil, fmt.Errorf("store workout: %w", err)
	}
	w.ID = key

	recordSessionRating(ctx, st, userID, in.RoutineId, in.Rating)

	progress, err := GrantXP(ctx, st, userID, xpForSession(in.CaloriesBurned))
	if err != nil {
		return nil, err
	}
	return &models.WorkoutCompletionResponse{
		Workout:     w,
		XpGained:    progress.XpGained,
		NewTotalXp:  progress.NewTotalXp,
		NewLevel:    progress.NewLevel,
		LevelUp:     progress.LevelUp,
		Rank:        progress.Rank,
		PrevLevelXp: progress.PrevLevelXp,
		NextLevelXp: progress.NextLevelXp,
	}, nil
}

// CompleteScheduled marks an existing scheduled workout done, attaches the
// session log to it and grants XP the same way CompleteSession does.
func CompleteScheduled(ctx context.Context, st store.Store, userID, workoutKey string, in models.WorkoutSessionLog) (*models.WorkoutCompletionResponse, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	doc, err := st.Get(ctx, models.CollectionScheduledWorkouts, workoutKey)
	if err != nil {
		return nil, fmt.Errorf("get workout %s: %w", workoutKey, err)
	}
	if owner, _ := doc.Data["user_id"].(string); owner != userID {
		return nil, utils.ErrorNotAuthorized
	}

	logs := in.Logs
	if logs == nil {
		logs = []models.WorkoutSetLog{}
	}
	logMaps := make([]any, 0, len(logs))
	for _, l := range logs {
		m, err := utils.EncodeDocument(l)
		if err != nil {
			return nil, fmt.Errorf("encode set log: %w", err)
		}
		logMaps = append(logMaps, m)
	}
	note := sessionNote(in)
	ops := []store.UpdateOp{
		store.SetField("status", string(models.WorkoutStatusCompleted)),
		store.SetField("duration_seconds", in.DurationSeconds),
		store.SetField("calories_burned", in.CaloriesBurned),
		store.SetField("logs", logMaps),
	}
	if note != "" {
		ops = append(ops, store.SetField("note", note))
	}
	err = st.Update(ctx, models.CollectionScheduledWorkouts, workoutKey, ops)
	if err != nil {
		return nil, fmt.Errorf("complete workout %s: %w", workoutKey, err)
	}

	var w models.ScheduledWorkout
	if err := utils.DecodeDocument(doc.Data, &w); err != nil {
		return nil, fmt.Errorf("decode workout %s: %w", workoutKey, err)
	}
	w.ID = workoutKey
	w.Status = models.WorkoutStatusCompleted
	w.DurationSeconds = in.DurationSeconds
	w.CaloriesBurned = in.CaloriesBurned
	w.Logs = logs
	if note != "" {
		w.Note = note
	}

	routineID := w.RoutineId
	if routineID == "" {
		routineID = in.RoutineId
	}
	recordSessionRating(ctx, st, userID, routineID, in.Rating)

	progress, err := GrantXP(ctx, st, userID, xpForSession(in.CaloriesBurned))
	if err != nil {
		return nil, err
	}
	return &models.WorkoutCompletionResponse{
		Workout:     w,
		XpGained:    progress.XpGained,
		NewTotalXp:  progress.NewTotalXp,
		NewLevel:    progress.NewLevel,
		LevelUp:     progress.LevelUp,
		Rank:        progress.Rank,
		PrevLevelXp: progress.PrevLevelXp,
		NextLevelXp: progress.NextLevelXp,
	}, nil
}
