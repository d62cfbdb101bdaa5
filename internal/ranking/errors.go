package ranking

import "errors"

var (
	// ErrStoreWriteFailed means the new record was not durably appended; no rank is computed.
	ErrStoreWriteFailed = errors.New("score ledger write failed")
	// ErrStoreUnavailable means the record was appended but the ledger could not be read.
	ErrStoreUnavailable = errors.New("score ledger unavailable")
	// ErrInvalidScore rejects scores that are not finite or fall outside [1, 10].
	ErrInvalidScore = errors.New("invalid score")
	// ErrCorruptLedger is returned by ledgers whose backing data cannot be decoded.
	ErrCorruptLedger = errors.New("corrupt score ledger")
)
