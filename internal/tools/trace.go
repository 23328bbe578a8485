package tools

import (
	"strconv"
	"sync/atomic"
	"time"
)

// traceCounter disambiguates trace ids generated within the same
// millisecond.
var traceCounter atomic.Uint64

// NewTraceID generates a monotonic-enough trace id: the current time in
// base36 plus a process-wide counter.
func NewTraceID() string {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	n := strconv.FormatUint(traceCounter.Add(1), 36)
	return ts + "-" + n
}
