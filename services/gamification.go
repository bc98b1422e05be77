package services

import (
	"context"
	"fmt"
	"math"

	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
)

// Progression is pure arithmetic over accumulated experience. Level and rank
// are always derived from XP, never stored, so a corrected XP value can
// never drift out of sync with a cached level.
//
//	Level(xp)        = floor(sqrt(max(xp,0) / 100)) + 1
//	LevelStartXp(L)  = (L-1)^2 * 100
//	LevelEndXp(L)    = L^2 * 100

func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(math.Sqrt(float64(xp)/100)) + 1
}

func LevelStartXp(level int) int64 {
	if level < 1 {
		level = 1
	}
	l := int64(level)
	return (l - 1) * (l - 1) * 100
}

func LevelEndXp(level int) int64 {
	if level < 1 {
		level = 1
	}
	l := int64(level)
	return l * l * 100
}

// ProgressPercent reports how far xp sits inside its level, clamped to
// [0, 100]. The denominator is floored at 100 so level 1 (span exactly 100)
// can never divide by zero if the formula changes.
func ProgressPercent(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	level := Level(xp)
	start := LevelStartXp(level)
	span := LevelEndXp(level) - start
	if span < 100 {
		span = 100
	}
	pct := int((xp - start) * 100 / span)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// RankForLevel is a fixed step function of level.
func RankForLevel(level int) models.RankTier {
	switch {
	case level < 11:
		return models.RankBronze
	case level < 31:
		return models.RankSilver
	case level < 51:
		return models.RankGold
	case level < 71:
		return models.RankPlatinum
	case level < 91:
		return models.RankDiamond
	default:
		return models.RankChampion
	}
}

// ProgressionUpdate is the outcome of one XP grant.
type ProgressionUpdate struct {
	XpGained    int64           `json:"xp_gained"`
	NewTotalXp  int64           `json:"new_total_xp"`
	NewLevel    int             `json:"new_level"`
	LevelUp     bool            `json:"level_up"`
	Rank        models.RankTier `json:"rank"`
	PrevLevelXp int64           `json:"prev_level_xp"`
	NextLevelXp int64           `json:"next_level_xp"`
}

// Progression summarizes a raw XP value for display.
type Progression struct {
	Xp              int64           `json:"xp"`
	Level           int             `json:"level"`
	Rank            models.RankTier `json:"rank"`
	ProgressPercent int             `json:"progress_percent"`
	PrevLevelXp     int64           `json:"prev_level_xp"`
	NextLevelXp     int64           `json:"next_level_xp"`
}

func ProgressionOf(xp int64) Progression {
	level := Level(xp)
	return Progression{
		Xp:              xp,
		Level:           level,
		Rank:            RankForLevel(level),
		ProgressPercent: ProgressPercent(xp),
		PrevLevelXp:     LevelStartXp(level),
		NextLevelXp:     LevelEndXp(level),
	}
}

// GrantXP adds experience to a user through a store-native increment and
// reports whether the grant crossed a level boundary. LevelUp compares the
// levels derived from the pre- and post-update XP; it never consults a
// stored level field.
func GrantXP(ctx context.Context, st store.Store, userID string, amount int64) (*ProgressionUpdate, error) {
	if amount < 0 {
		return nil, fmt.Errorf("xp grant must be non-negative")
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	user, err := st.Get(ctx, models.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("grant xp to %s: %w", userID, err)
	}
	oldXp := int64(0)
	if v, ok := asFloat(user.Data["xp"]); ok {
		oldXp = int64(v)
	}

	if err := st.Update(ctx, models.CollectionUsers, userID, []store.UpdateOp{
		store.Increment("xp", amount),
	}); err != nil {
		return nil, fmt.Errorf("grant xp to %s: %w", userID, err)
	}

	newXp := oldXp + amount
	newLevel := Level(newXp)
	return &ProgressionUpdate{
		XpGained:    amount,
		NewTotalXp:  newXp,
		NewLevel:    newLevel,
		LevelUp:     newLevel > Level(oldXp),
		Rank:        RankForLevel(newLevel),
		PrevLevelXp: LevelStartXp(newLevel),
		NextLevelXp: LevelEndXp(newLevel),
	}, nil
}
