package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/mmdatafocus/fittrack_backend/store"
)

// ListOwnedAndPublic unions two independently filtered result sets — the
// caller's own documents and everything publicly shared — into one
// deduplicated page. A document that is both owned and public appears once;
// the merge is idempotent. Pagination applies only to the merged, sorted
// sequence: paginating either sub-query would bias the page toward
// whichever query ran first.
func ListOwnedAndPublic(ctx context.Context, st store.Store, collection, ownerField, ownerKey string, skip, limit int) ([]store.Document, error) {
	ctx, cancel := storeCtx(ctx)
	defer cancel()

	orderBy := store.Order{Field: "created_at", Desc: true}

	// Each sub-query fetches up to skip+limit ordered documents; fewer
	// could not fill the merged page even if one scope supplied everything.
	fetch := 0
	if limit > 0 {
		fetch = skip + limit
	}

	merged := make(map[string]store.Document)
	if ownerKey != "" {
		owned, err := queryOrdered(ctx, st, collection, []store.Filter{{Field: ownerField, Value: ownerKey}}, orderBy, fetch)
		if err != nil {
			return nil, fmt.Errorf("list owned %s: %w", collection, err)
		}
		for _, d := range owned {
			merged[d.Key] = d
		}
	}

	public, err := queryOrdered(ctx, st, collection, []store.Filter{{Field: "is_public", Value: true}}, orderBy, fetch)
	if err != nil {
		return nil, fmt.Errorf("list public %s: %w", collection, err)
	}
	for _, d := range public {
		merged[d.Key] = d
	}

	docs := make([]store.Document, 0, len(merged))
	for _, d := range merged {
		docs = append(docs, d)
	}
	// newest first; key ascending as a deterministic tiebreak, since two
	// documents created concurrently can carry equal timestamps
	sort.Slice(docs, func(i, j int) bool {
		c := compareFieldValues(docs[i].Data["created_at"], docs[j].Data["created_at"])
		if c != 0 {
			return c > 0
		}
		return docs[i].Key < docs[j].Key
	})

	if skip >= len(docs) {
		return []store.Document{}, nil
	}
	docs = docs[skip:]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// ListOwnedAndPublicWithChildren composes the merge-scope page with the
// batched child resolution pass, the read path behind the routine and diet
// listings.
func ListOwnedAndPublicWithChildren(ctx context.Context, st store.Store, spec JoinSpec, ownerField, ownerKey string, skip, limit int) ([]*ParentView, error) {
	parents, err := ListOwnedAndPublic(ctx, st, spec.ParentCollection, ownerField, ownerKey, skip, limit)
	if err != nil {
		return nil, err
	}
	return attachChildren(ctx, st, spec, parents)
}
