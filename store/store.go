// Package store is the document-store port the whole backend reads and
// writes through. It exposes the handful of primitives the provider actually
// offers (per-document gets, flat indexed-field queries, capped batch reads,
// merge-style updates with field transforms, non-atomic batched writes) and
// nothing more: there are no joins and no multi-document transactions, so
// every relationship above this package is an explicit query-then-batch-get.
package store

import "context"

const (
	// MaxBatchGetKeys is the provider cap on keys per multi-get call.
	MaxBatchGetKeys = 100
	// MaxInValues is the provider cap on values per "IN"-filter query.
	MaxInValues = 10
)

// Document is a raw store document: an opaque generated key plus the field
// map. Typed models decode from Data via utils.DecodeDocument.
type Document struct {
	Key  string
	Data map[string]any
}

// Filter is a flat indexed-field equality filter.
type Filter struct {
	Field string
	Value any
}

type Order struct {
	Field string
	Desc  bool
}

type OpKind int

const (
	OpSet OpKind = iota
	OpIncrement
	OpArrayUnion
	OpServerTimestamp
)

// UpdateOp is one field operation inside a partial-merge update. OpIncrement
// and OpArrayUnion are server-side transforms: they commute with concurrent
// writers, which the daily-ledger path depends on.
type UpdateOp struct {
	Field string
	Kind  OpKind
	Value any
	Elems []any
}

func SetField(field string, value any) UpdateOp {
	return UpdateOp{Field: field, Kind: OpSet, Value: value}
}

// Increment returns an atomic numeric increment op. delta may be any integer
// or float type the store supports.
func Increment(field string, delta any) UpdateOp {
	return UpdateOp{Field: field, Kind: OpIncrement, Value: delta}
}

// ArrayUnion returns an append op with set-union semantics: elements already
// present (deep-equal) in the stored array are not duplicated.
func ArrayUnion(field string, elems ...any) UpdateOp {
	return UpdateOp{Field: field, Kind: OpArrayUnion, Elems: elems}
}

func ServerTimestamp(field string) UpdateOp {
	return UpdateOp{Field: field, Kind: OpServerTimestamp}
}

type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteUpdate
	WriteDelete
)

// Write is one element of a client-side batched write. The batch is NOT
// atomic across the store: partial application on failure is possible and
// callers must tolerate it.
type Write struct {
	Kind       WriteKind
	Collection string
	// Key may be empty for WriteSet, in which case the store generates one.
	Key  string
	Data map[string]any
	Ops  []UpdateOp
}

// Store is implemented by the Firestore adapter (production) and the
// in-memory adapter (tests, local dev). Collection names may be slash paths
// into subcollections, e.g. "users/{uid}/nutrition_logs".
//
// Every call honors the context deadline; no call blocks indefinitely.
type Store interface {
	// Get returns utils.ErrorRecordNotFound when the document is absent.
	Get(ctx context.Context, collection, key string) (*Document, error)

	// Query applies equality filters, an optional server-side order and a
	// limit. An ordered query may fail with utils.ErrorIndexUnavailable when
	// the backing composite index is missing; callers re-issue without the
	// order and sort in memory.
	Query(ctx context.Context, collection string, filters []Filter, orderBy *Order, limit int) ([]Document, error)

	// QueryIn matches documents whose field equals any of values. Callers
	// must pass at most MaxInValues values; more is a chunking bug and fails
	// with utils.ErrorBatchLimitExceeded.
	QueryIn(ctx context.Context, collection, field string, values []string) ([]Document, error)

	// BatchGet resolves up to MaxBatchGetKeys keys in one call. Absent keys
	// are silently missing from the result, never an error.
	BatchGet(ctx context.Context, collection string, keys []string) ([]Document, error)

	// Add stores data under a newly generated key and returns the key.
	Add(ctx context.Context, collection string, data map[string]any) (string, error)

	// Create stores data under key, failing with utils.ErrorConflict if the
	// document already exists.
	Create(ctx context.Context, collection, key string, data map[string]any) error

	// Set stores data under key, replacing any existing document.
	Set(ctx context.Context, collection, key string, data map[string]any) error

	// Update applies a partial-field merge; untouched fields survive.
	Update(ctx context.Context, collection, key string, ops []UpdateOp) error

	Delete(ctx context.Context, collection, key string) error

	BatchWrite(ctx context.Context, writes []Write) error
}
