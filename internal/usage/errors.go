package usage

import "errors"

// ErrNoSnapshots indicates nothing has been recorded yet.
var ErrNoSnapshots = errors.New("no usage snapshots recorded")

// ErrInvalidSnapshot indicates a snapshot missing its ID or timestamp.
var ErrInvalidSnapshot = errors.New("invalid usage snapshot")

// ErrRecordFailed wraps store failures while recording a polled snapshot.
var ErrRecordFailed = errors.New("record usage snapshot")
