package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/mmdatafocus/fittrack_backend/utils"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore adapts a Firestore client to the Store port. The client is
// constructed once at startup (config.ConnectFirestoreWithRetry) and handed
// in explicitly; the adapter never reaches for an ambient singleton.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Get(ctx context.Context, collection, key string) (*Document, error) {
	snap, err := s.client.Collection(collection).Doc(key).Get(ctx)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return &Document{Key: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, filters []Filter, orderBy *Order, limit int) ([]Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range filters {
		q = q.Where(f.Field, "==", f.Value)
	}
	if orderBy != nil {
		dir := firestore.Asc
		if orderBy.Desc {
			dir = firestore.Desc
		}
		q = q.OrderBy(orderBy.Field, dir)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return snapsToDocuments(snaps), nil
}

func (s *FirestoreStore) QueryIn(ctx context.Context, collection, field string, values []string) ([]Document, error) {
	if len(values) > MaxInValues {
		return nil, fmt.Errorf("%w: %d values for IN filter on %s (max %d)", utils.ErrorBatchLimitExceeded, len(values), collection, MaxInValues)
	}
	if len(values) == 0 {
		return nil, nil
	}
	snaps, err := s.client.Collection(collection).Where(field, "in", values).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	return snapsToDocuments(snaps), nil
}

func (s *FirestoreStore) BatchGet(ctx context.Context, collection string, keys []string) ([]Document, error) {
	if len(keys) > MaxBatchGetKeys {
		return nil, fmt.Errorf("%w: %d keys for batch get on %s (max %d)", utils.ErrorBatchLimitExceeded, len(keys), collection, MaxBatchGetKeys)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	col := s.client.Collection(collection)
	refs := make([]*firestore.DocumentRef, 0, len(keys))
	for _, k := range keys {
		refs = append(refs, col.Doc(k))
	}
	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, mapFirestoreError(err)
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			// dangling references resolve to "missing", never an error
			continue
		}
		docs = append(docs, Document{Key: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (s *FirestoreStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", mapFirestoreError(err)
	}
	return ref.ID, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection, key string, data map[string]any) error {
	_, err := s.client.Collection(collection).Doc(key).Create(ctx, data)
	return mapFirestoreError(err)
}

func (s *FirestoreStore) Set(ctx context.Context, collection, key string, data map[string]any) error {
	_, err := s.client.Collection(collection).Doc(key).Set(ctx, data)
	return mapFirestoreError(err)
}

func (s *FirestoreStore) Update(ctx context.Context, collection, key string, ops []UpdateOp) error {
	updates := make([]firestore.Update, 0, len(ops))
	for _, op := range ops {
		updates = append(updates, firestoreUpdate(op))
	}
	_, err := s.client.Collection(collection).Doc(key).Update(ctx, updates)
	return mapFirestoreError(err)
}

func (s *FirestoreStore) Delete(ctx context.Context, collection, key string) error {
	_, err := s.client.Collection(collection).Doc(key).Delete(ctx)
	return mapFirestoreError(err)
}

// BatchWrite commits through a BulkWriter. Writes are batched client-side
// and are not atomic as a group; a failing element does not roll back the
// rest.
func (s *FirestoreStore) BatchWrite(ctx context.Context, writes []Write) error {
	bw := s.client.BulkWriter(ctx)
	var firstErr error
	for _, w := range writes {
		col := s.client.Collection(w.Collection)
		var ref *firestore.DocumentRef
		if w.Key == "" {
			ref = col.NewDoc()
		} else {
			ref = col.Doc(w.Key)
		}
		var err error
		switch w.Kind {
		case WriteSet:
			_, err = bw.Set(ref, w.Data)
		case WriteUpdate:
			updates := make([]firestore.Update, 0, len(w.Ops))
			for _, op := range w.Ops {
				updates = append(updates, firestoreUpdate(op))
			}
			_, err = bw.Update(ref, updates)
		case WriteDelete:
			_, err = bw.Delete(ref)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	bw.End()
	return mapFirestoreError(firstErr)
}

func firestoreUpdate(op UpdateOp) firestore.Update {
	switch op.Kind {
	case OpIncrement:
		return firestore.Update{Path: op.Field, Value: firestore.Increment(op.Value)}
	case OpArrayUnion:
		return firestore.Update{Path: op.Field, Value: firestore.ArrayUnion(op.Elems...)}
	case OpServerTimestamp:
		return firestore.Update{Path: op.Field, Value: firestore.ServerTimestamp}
	default:
		return firestore.Update{Path: op.Field, Value: op.Value}
	}
}

func snapsToDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{Key: snap.Ref.ID, Data: snap.Data()})
	}
	return docs
}

func mapFirestoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", utils.ErrorUpstreamUnavailable, err)
	}
	switch status.Code(err) {
	case codes.NotFound:
		return utils.ErrorRecordNotFound
	case codes.AlreadyExists:
		return utils.ErrorConflict
	case codes.FailedPrecondition:
		// missing composite index; callers fall back to in-memory sorting
		return fmt.Errorf("%w: %v", utils.ErrorIndexUnavailable, err)
	case codes.DeadlineExceeded, codes.Unavailable:
		return fmt.Errorf("%w: %v", utils.ErrorUpstreamUnavailable, err)
	}
	return err
}
