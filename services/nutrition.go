package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/fittrack_backend/config"
	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

const defaultCalorieGoal = 2000

// dailyStatsCacheTTL bounds staleness of the ledger read cache. Writers
// invalidate the key, the TTL only covers invalidations lost to Redis
// restarts.
const dailyStatsCacheTTL = time.Minute

func dailyStatsCacheKey(userID, date string) string {
	return fmt.Sprintf("DailyStats:%s:%s", userID, date)
}

func dailyStatsVersionKey(userID, date string) string {
	return fmt.Sprintf("DailyStatsVer:%s:%s", userID, date)
}

// dailyStatsCacheEntry pins a cached ledger snapshot to the version counter
// it was read under. A reader that raced a writer stores a superseded
// version, so its stale snapshot is never served.
type dailyStatsCacheEntry struct {
	Version int64                      `json:"version"`
	Stats   models.DailyNutritionStats `json:"stats"`
}

// cache seams, swapped for in-memory doubles in tests
var (
	cacheGetObject = config.GetRedisObject
	cacheSetObject = config.SetRedisObject
	cacheRemoveKey = config.RemoveRedisKey
	cacheGetInt    = config.GetRedisInt
	cacheIncrKey   = config.IncrRedisKey
)

// invalidateDailyStats bumps the ledger's cache version and drops the
// cached snapshot. The bump is what makes invalidation race-proof: a
// snapshot cached under the old version fails the version check on read.
func invalidateDailyStats(userID, date string) {
	_, _ = cacheIncrKey(dailyStatsVersionKey(userID, date))
	_ = cacheRemoveKey(dailyStatsCacheKey(userID, date))
}

// maxAppendRetries bounds the create-vs-update race loop; past this the
// conflict surfaces to the caller as a transient failure.
const maxAppendRetries = 3

// AppendLogEntry appends one food entry to the caller's daily ledger and
// keeps the running totals consistent with the embedded log list. The
// totals and the list element land in the same store call, via
// store-native transforms that commute under concurrency:
//
//   - Increment for each numeric total, so two concurrent appends never
//     under-count a delta the way read-modify-write would
//   - ArrayUnion for the log list, so concurrent appends never overwrite
//     each other's elements
//
// A per-(user,date) Redis lock additionally serializes writers when
// configured, but it is a best-effort optimization: correctness does not
// depend on it. The first log of a day goes through a conditional create
// that loses cleanly to a concurrent creator and retries as an update.
//
// The returned document overlays the known delta onto the previous
// snapshot; it is never a re-read, so it always reflects the entry just
// appended even before server-resolved fields settle.
func AppendLogEntry(ctx context.Context, st store.Store, userID, date string, entry models.NutritionLogEntry) (*models.DailyNutritionStats, error) {
	if err := validate.Struct(entry); err != nil {
		return nil, err
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	if entry.MealType == "" {
		entry.MealType = models.MealTypeSnack
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now().UTC()
	}

	if config.GetRedisLock() != nil {
		release, err := utils.LedgerLock(ctx, userID, date, "services", "AppendLogEntry")
		if err != nil {
			return nil, err
		}
		defer release()
	}

	collection := models.NutritionLogCollection(userID)
	entryMap, err := utils.EncodeDocument(entry)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		doc, err := st.Get(ctx, collection, date)
		if errors.Is(err, utils.ErrorRecordNotFound) {
			data := map[string]any{
				"date":           date,
				"total_calories": entry.Calories,
				"total_protein":  entry.Protein,
				"total_carbs":    entry.Carbs,
				"total_fat":      entry.Fat,
				"logs":           []any{entryMap},
			}
			err := st.Create(ctx, collection, date, data)
			if errors.Is(err, utils.ErrorConflict) {
				// lost the first-log race; retry as an update
				continue
			}
			if err != nil {
				// partial ledger writes are unacceptable, timeouts surface hard
				return nil, fmt.Errorf("create ledger %s/%s: %w", collection, date, err)
			}
			invalidateDailyStats(userID, date)
			return &models.DailyNutritionStats{
				Date:          date,
				TotalCalories: entry.Calories,
				TotalProtein:  entry.Protein,
				TotalCarbs:    entry.Carbs,
				TotalFat:      entry.Fat,
				Logs:          []models.NutritionLogEntry{entry},
			}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read ledger %s/%s: %w", collection, date, err)
		}

		var prev models.DailyNutritionStats
		if err := utils.DecodeDocument(doc.Data, &prev); err != nil {
			return nil, fmt.Errorf("decode ledger %s/%s: %w", collection, date, err)
		}

		err = st.Update(ctx, collection, date, []store.UpdateOp{
			store.Increment("total_calories", entry.Calories),
			store.Increment("total_protein", entry.Protein),
			store.Increment("total_carbs", entry.Carbs),
			store.Increment("total_fat", entry.Fat),
			store.ArrayUnion("logs", entryMap),
		})
		if errors.Is(err, utils.ErrorRecordNotFound) {
			// ledger vanished between read and write; retry from the top
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("append to ledger %s/%s: %w", collection, date, err)
		}
		invalidateDailyStats(userID, date)

		prev.Date = date
		prev.TotalCalories += entry.Calories
		prev.TotalProtein += entry.Protein
		prev.TotalCarbs += entry.Carbs
		prev.TotalFat += entry.Fat
		prev.Logs = append(prev.Logs, entry)
		return &prev, nil
	}
	return nil, fmt.Errorf("append to ledger %s/%s: %w", collection, date, utils.ErrorConflict)
}

// GetDailyStats returns the ledger for (user, date), or a zeroed document
// when nothing has been logged yet. The calorie goal rides along from the
// user document.
func GetDailyStats(ctx context.Context, st store.Store, userID, date string) (*models.DailyNutritionStats, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	stats := &models.DailyNutritionStats{
		Date:         date,
		GoalCalories: defaultCalorieGoal,
		Logs:         []models.NutritionLogEntry{},
	}

	if user, err := st.Get(ctx, models.CollectionUsers, userID); err == nil {
		if goal, ok := asFloat(user.Data["daily_calorie_goal"]); ok && goal > 0 {
			stats.GoalCalories = int64(goal)
		}
	}

	// Ledger reads go through a short-lived Redis cache; the goal is always
	// resolved live from the user document so goal edits show up immediately.
	// The version counter is captured before the store read so a snapshot
	// cached here is tied to the ledger state it was read under.
	version, verErr := cacheGetInt(dailyStatsVersionKey(userID, date))
	var cached dailyStatsCacheEntry
	if ok, err := cacheGetObject(dailyStatsCacheKey(userID, date), &cached); verErr == nil && err == nil && ok && cached.Version == version {
		out := cached.Stats
		out.Date = date
		out.GoalCalories = stats.GoalCalories
		if out.Logs == nil {
			out.Logs = []models.NutritionLogEntry{}
		}
		return &out, nil
	}

	doc, err := st.Get(ctx, models.NutritionLogCollection(userID), date)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return stats, nil
	}
	if err != nil {
		return nil, err
	}
	goal := stats.GoalCalories
	if err := utils.DecodeDocument(doc.Data, stats); err != nil {
		return nil, err
	}
	stats.Date = date
	stats.GoalCalories = goal
	if stats.Logs == nil {
		stats.Logs = []models.NutritionLogEntry{}
	}
	if verErr == nil {
		_ = cacheSetObject(dailyStatsCacheKey(userID, date), dailyStatsCacheEntry{Version: version, Stats: *stats}, dailyStatsCacheTTL)
	}
	return stats, nil
}

// UpdateCalorieGoal sets the user's daily calorie goal.
func UpdateCalorieGoal(ctx context.Context, st store.Store, userID string, goal int64) error {
	if goal <= 0 {
		return fmt.Errorf("calorie goal must be positive")
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	return st.Update(ctx, models.CollectionUsers, userID, []store.UpdateOp{
		store.SetField("daily_calorie_goal", goal),
	})
}
