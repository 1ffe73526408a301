package jobpool

import "errors"

// Sentinel errors returned by Pool operations. All of them support
// errors.Is against the values below.
var (
	// ErrInvalidArgument is returned when a constructor argument is outside
	// its valid range, e.g. newBsem given a value other than 0 or 1, or an
	// operation is invoked on a nil *Pool.
	ErrInvalidArgument = errors.New("jobpool: invalid argument")

	// ErrStartupTimeout is returned by New/NewWithConfig when the worker
	// goroutines did not all report alive within Config.StartupTimeout.
	ErrStartupTimeout = errors.New("jobpool: startup timeout")

	// ErrNotFound is returned by FindResult when its retry budget is
	// exhausted without a matching identifier appearing in queueOut.
	ErrNotFound = errors.New("jobpool: result not found")

	// ErrUnsupportedPlatform marks a non-fatal, logged-only condition: a
	// platform-specific nicety (thread naming) that has no portable
	// equivalent. Never returned from an exported function; kept for
	// taxonomy parity with spec.md §7.
	ErrUnsupportedPlatform = errors.New("jobpool: unsupported platform")

	// ErrOutOfMemory is kept for taxonomy parity with the source design.
	// Go's allocator failures are not recoverable the way spec.md §7
	// assumes, so this is never produced by normal operation.
	ErrOutOfMemory = errors.New("jobpool: out of memory")

	// ErrWaitTimeout is returned by WaitTimeout when the pool has not
	// reached quiescence within the given duration.
	ErrWaitTimeout = errors.New("jobpool: wait timed out")

	// ErrPoolClosed is returned by AddWork once Destroy has cleared
	// keepalive. spec.md does not reach this case: the C original frees
	// the pool on destroy, so a post-destroy add_work is a use-after-free,
	// not a defined error path. A GC'd language can and should reject it
	// cleanly instead.
	ErrPoolClosed = errors.New("jobpool: pool closed")
)
