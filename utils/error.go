package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// ErrorIndexUnavailable means the store rejected a server-side ordered query,
// usually because the composite index backing it has not been provisioned.
// Callers recover by re-issuing the query unsorted and sorting in memory.
var ErrorIndexUnavailable = errors.New("index unavailable")

// ErrorBatchLimitExceeded indicates a caller handed the store more keys than
// a single provider call allows. This is a programming error in the chunking
// logic, never a runtime condition to retry.
var ErrorBatchLimitExceeded = errors.New("batch limit exceeded")

// ErrorConflict is returned when a conditional write (create-if-absent)
// loses to a concurrent writer.
var ErrorConflict = errors.New("concurrent update conflict")

var ErrorLockNotObtained = errors.New("lock not obtained")

var ErrorNotAuthorized = errors.New("not authorized")

// ErrorUpstreamUnavailable wraps store call timeouts. Read paths degrade to
// partial results; the ledger write path surfaces it as a hard failure.
var ErrorUpstreamUnavailable = errors.New("upstream unavailable")
