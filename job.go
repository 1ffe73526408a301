package jobpool

// JobFunc is the payload contract: a computation over one caller-owned,
// opaque argument that produces an integer result. Callers who need heap
// arguments should capture them in a closure; callers who need a release
// hook should defer it inside that closure. The pool never inspects arg.
type JobFunc func(arg any) int

// job is the unit of work and, after execution, the unit of result. It is
// created by AddWork, owned by queueIn until a worker pulls it, owned
// transiently by the executing worker, and owned by queueOut until claimed
// by FindResult or discarded by Destroy. next is the link field used while
// the job is resident in a jobQueue; it is only valid under that queue's
// mutex.
type job struct {
	id     int
	fn     JobFunc
	arg    any
	result int
	next   *job
}
