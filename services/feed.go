package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

// GetFeed lists shared posts newest first. Posts live in a single collection
// so the offset can be pushed into the fetch size instead of merging scopes.
func GetFeed(ctx context.Context, st store.Store, skip, limit int) ([]models.Post, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	fetch := 0
	if limit > 0 {
		fetch = skip + limit
	}
	docs, err := queryOrdered(ctx, st, models.CollectionPosts, nil,
		store.Order{Field: "created_at", Desc: true}, fetch)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if skip >= len(docs) {
		return []models.Post{}, nil
	}
	docs = docs[skip:]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	posts := make([]models.Post, 0, len(docs))
	for _, doc := range docs {
		var p models.Post
		if err := utils.DecodeDocument(doc.Data, &p); err != nil {
			return nil, fmt.Errorf("decode post %s: %w", doc.Key, err)
		}
		p.ID = doc.Key
		if p.Likes == nil {
			p.Likes = []string{}
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// SharePost publishes a routine or diet to the feed. Only the owner may
// share, and sharing flips the content public so feed readers can import it.
func SharePost(ctx context.Context, st store.Store, callerID string, in models.PostInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", err
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	desc, err := resolveContentType(in.ContentType)
	if err != nil {
		return "", err
	}
	parent, err := st.Get(ctx, desc.Collection, in.ContentId)
	if err != nil {
		return "", fmt.Errorf("share %s/%s: %w", desc.Collection, in.ContentId, err)
	}
	if owner, _ := parent.Data[desc.OwnerField].(string); owner != callerID {
		return "", utils.ErrorNotAuthorized
	}

	if isPublic, _ := parent.Data["is_public"].(bool); !isPublic {
		err = st.Update(ctx, desc.Collection, in.ContentId, []store.UpdateOp{
			store.SetField("is_public", true),
		})
		if err != nil {
			return "", fmt.Errorf("publish %s/%s: %w", desc.Collection, in.ContentId, err)
		}
	}

	key, err := st.Add(ctx, models.CollectionPosts, map[string]any{
		"content_type":   string(in.ContentType),
		"content_id":     in.ContentId,
		"content_name":   in.ContentName,
		"content_image":  in.ContentImage,
		"creator_id":     callerID,
		"creator_name":   in.CreatorName,
		"creator_avatar": in.CreatorAvatar,
		"likes":          []string{},
		"rating_sum":     float64(0),
		"rating_count":   int64(0),
		"created_at":     time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("store post: %w", err)
	}
	return key, nil
}

// ToggleLike adds the caller to a post's likes array, or removes them when
// already present. Returns the resulting liked state and like count.
func ToggleLike(ctx context.Context, st store.Store, callerID, postKey string) (liked bool, likes int, err error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	doc, err := st.Get(ctx, models.CollectionPosts, postKey)
	if err != nil {
		return false, 0, fmt.Errorf("get post %s: %w", postKey, err)
	}

	current := []string{}
	if raw, ok := doc.Data["likes"].([]any); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				current = append(current, s)
			}
		}
	} else if ss, ok := doc.Data["likes"].([]string); ok {
		current = append(current, ss...)
	}

	next := make([]string, 0, len(current)+1)
	for _, id := range current {
		if id != callerID {
			next = append(next, id)
		}
	}
	liked = len(next) == len(current)
	if liked {
		next = append(next, callerID)
	}

	err = st.Update(ctx, models.CollectionPosts, postKey, []store.UpdateOp{
		store.SetField("likes", next),
	})
	if err != nil {
		return false, 0, fmt.Errorf("update post %s: %w", postKey, err)
	}
	return liked, len(next), nil
}
