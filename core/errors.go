package core

import "errors"

// ErrExecution wraps a fatal error raised by an Executor while applying
// a transaction. Per the error-handling design, this is not the same
// thing as a reverted transaction (which is a successful Outcome whose
// Receipt.Status is failed) — it means the Executor itself could not
// produce a result at all.
var ErrExecution = errors.New("core: execution error")

// ErrIO wraps a fatal error raised by a StateStore, e.g. a backing
// store read/write failure during CommitExternal.
var ErrIO = errors.New("core: state store I/O error")
