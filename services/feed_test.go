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

func TestSharePostPublishesPrivateContent(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionRoutines, "r1", map[string]any{
		"name": "PPL", "creator_id": "u1", "is_public": false,
		"created_at": time.Now().UTC(),
	}))

	key, err := SharePost(ctx, st, "u1", models.PostInput{
		ContentType: models.ContentTypeRoutine,
		ContentId:   "r1",
		ContentName: "PPL",
		CreatorName: "adrian",
	})
	require.NoError(t, err)
	require.NotEmpty(t, key)

	routine, err := st.Get(ctx, models.CollectionRoutines, "r1")
	require.NoError(t, err)
	assert.Equal(t, true, routine.Data["is_public"], "sharing flips content public")
}

func TestSharePostRejectsNonOwner(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionRoutines, "r1", map[string]any{
		"name": "PPL", "creator_id": "u1", "is_public": true,
		"created_at": time.Now().UTC(),
	}))

	_, err := SharePost(ctx, st, "intruder", models.PostInput{
		ContentType: models.ContentTypeRoutine,
		ContentId:   "r1",
		ContentName: "PPL",
	})
	require.ErrorIs(t, err, utils.ErrorNotAuthorized)
}

func TestGetFeedNewestFirstWithPagination(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, st.Set(ctx, models.CollectionPosts, string(rune('a'+i)), map[string]any{
			"content_type": "routine",
			"content_id":   "r1",
			"content_name": "x",
			"creator_id":   "u1",
			"likes":        []any{},
			"created_at":   base.Add(time.Duration(i) * time.Hour),
		}))
	}

	posts, err := GetFeed(ctx, st, 0, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "e", posts[0].ID)
	assert.Equal(t, "d", posts[1].ID)

	rest, err := GetFeed(ctx, st, 2, 0)
	require.NoError(t, err)
	require.Len(t, rest, 3)
	assert.Equal(t, "c", rest[0].ID)

	empty, err := GetFeed(ctx, st, 99, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestToggleLikeAddsAndRemoves(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(ctx, models.CollectionPosts, "p1", map[string]any{
		"content_name": "x",
		"likes":        []any{"someone"},
		"created_at":   time.Now().UTC(),
	}))

	liked, likes, err := ToggleLike(ctx, st, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 2, likes)

	liked, likes, err = ToggleLike(ctx, st, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 1, likes)
}
