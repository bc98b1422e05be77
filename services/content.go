package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/fittrack_backend/models"
	"github.com/mmdatafocus/fittrack_backend/store"
	"github.com/mmdatafocus/fittrack_backend/utils"
)

// contentDescriptor is one entry of the dispatch table behind every tagged
// (type, id) content reference. Posts and ratings reference either a routine
// or a diet; resolving through this table keeps the variant handling in one
// place instead of scattered string branching.
type contentDescriptor struct {
	Collection string
	OwnerField string
	Join       JoinSpec
}

var contentTypes = map[models.ContentType]contentDescriptor{
	models.ContentTypeRoutine: {
		Collection: models.CollectionRoutines,
		OwnerField: "creator_id",
		Join:       RoutineExercisesJoin,
	},
	models.ContentTypeDiet: {
		Collection: models.CollectionDiets,
		OwnerField: "creator_id",
		Join:       DietFoodsJoin,
	},
}

func resolveContentType(t models.ContentType) (contentDescriptor, error) {
	desc, ok := contentTypes[t]
	if !ok {
		return contentDescriptor{}, fmt.Errorf("unknown content type %q", t)
	}
	return desc, nil
}

// CreateParent stores a new top-level content document with the defaults
// every Parent Record carries: owner, fresh rating pair and a creation
// timestamp.
func CreateParent(ctx context.Context, st store.Store, collection, creatorID string, data map[string]any) (string, error) {
	if data == nil {
		data = map[string]any{}
	}
	data["creator_id"] = creatorID
	if _, ok := data["is_public"]; !ok {
		data["is_public"] = false
	}
	data["rating_sum"] = float64(0)
	data["rating_count"] = int64(0)
	data["created_at"] = time.Now().UTC()
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	return st.Add(ctx, collection, data)
}

// DeleteParentCascade removes a parent and all of its child links. The store
// has no cascading deletes; the fan-out is applied client-side through a
// batched write, which is not atomic — a partial failure leaves orphaned
// links that the dangling-reference policy already tolerates on reads.
func DeleteParentCascade(ctx context.Context, st store.Store, spec JoinSpec, callerID, parentKey string) error {
	ctx, cancel := storeCtx(ctx)
	defer cancel()
	parent, err := st.Get(ctx, spec.ParentCollection, parentKey)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", spec.ParentCollection, parentKey, err)
	}
	if owner, _ := parent.Data["creator_id"].(string); owner != callerID {
		return utils.ErrorNotAuthorized
	}

	children, err := st.Query(ctx, spec.ChildCollection, []store.Filter{{Field: spec.ParentRefField, Value: parentKey}}, nil, 0)
	if err != nil {
		return fmt.Errorf("delete children of %s/%s: %w", spec.ParentCollection, parentKey, err)
	}

	writes := make([]store.Write, 0, len(children)+1)
	for _, c := range children {
		writes = append(writes, store.Write{Kind: store.WriteDelete, Collection: spec.ChildCollection, Key: c.Key})
	}
	writes = append(writes, store.Write{Kind: store.WriteDelete, Collection: spec.ParentCollection, Key: parentKey})
	return st.BatchWrite(ctx, writes)
}

// ImportContent clones a routine or diet (and its child links) into the
// caller's library. The clone is always private and starts with a clean
// rating pair.
func ImportContent(ctx context.Context, st store.Store, callerID string, ref models.ContentRef) (string, error) {
	if err := ref.Type.Valid(); err != nil {
		return "", err
	}
	desc, err := resolveContentType(ref.Type)
	if err != nil {
		return "", err
	}
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	original, err := st.Get(ctx, desc.Collection, ref.ID)
	if err != nil {
		return "", fmt.Errorf("import %s/%s: %w", desc.Collection, ref.ID, err)
	}
	// Only public content (or the caller's own) may be cloned.
	isPublic, _ := original.Data["is_public"].(bool)
	if owner, _ := original.Data["creator_id"].(string); !isPublic && owner != callerID {
		return "", utils.ErrorNotAuthorized
	}

	clone := make(map[string]any, len(original.Data))
	for k, v := range original.Data {
		clone[k] = v
	}
	name, _ := clone["name"].(string)
	if name == "" {
		name = "Untitled"
	}
	clone["name"] = name + " (Imported)"
	clone["creator_id"] = callerID
	clone["is_public"] = false
	clone["rating_sum"] = float64(0)
	clone["rating_count"] = int64(0)
	clone["created_at"] = time.Now().UTC()

	newID, err := st.Add(ctx, desc.Collection, clone)
	if err != nil {
		return "", err
	}

	children, err := st.Query(ctx, desc.Join.ChildCollection, []store.Filter{{Field: desc.Join.ParentRefField, Value: ref.ID}}, nil, 0)
	if err != nil {
		return "", fmt.Errorf("import children of %s/%s: %w", desc.Collection, ref.ID, err)
	}
	if len(children) == 0 {
		return newID, nil
	}

	writes := make([]store.Write, 0, len(children))
	for _, c := range children {
		data := make(map[string]any, len(c.Data))
		for k, v := range c.Data {
			data[k] = v
		}
		data[desc.Join.ParentRefField] = newID
		writes = append(writes, store.Write{Kind: store.WriteSet, Collection: desc.Join.ChildCollection, Data: data})
	}
	if err := st.BatchWrite(ctx, writes); err != nil {
		return "", err
	}
	return newID, nil
}
