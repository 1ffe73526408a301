package jobpool

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// defaultMaxQueueSizeWithoutWarning mirrors the source's compile-time
// MAX_QUEUE_SIZE_WITHOUT_WARNING default. It is a runtime Config field here
// rather than a preprocessor define, but the default value is unchanged.
const defaultMaxQueueSizeWithoutWarning = 100

// jobQueue is an ordered singly-linked sequence of jobs with cached length
// and an embedded binary semaphore that tracks non-emptiness. Every field
// is touched only under mu; hasJobs is raised on any push or on a pull that
// leaves jobs behind, so a single waiter wakes into a queue it can actually
// drain from.
type jobQueue struct {
	mu       sync.Mutex
	front    *job
	rear     *job
	len      int
	hasJobs  *bsem
	warnAt   int
	warned   bool
	logger   *logrus.Logger
	name     string
}

func newJobQueue(name string, warnAt int, logger *logrus.Logger) *jobQueue {
	sem, _ := newBsem(0) // 0 is always a valid bsem value.
	if warnAt <= 0 {
		warnAt = defaultMaxQueueSizeWithoutWarning
	}
	return &jobQueue{hasJobs: sem, warnAt: warnAt, logger: logger, name: name}
}

// push appends j at the rear of the queue and raises hasJobs.
func (q *jobQueue) push(j *job) {
	q.mu.Lock()
	j.next = nil
	if q.len == 0 {
		q.front = j
		q.rear = j
	} else {
		q.rear.next = j
		q.rear = j
	}
	q.len++
	n := q.len
	q.mu.Unlock()

	q.warnIfOversized(n)
	q.hasJobs.post()
}

// pullFront removes and returns the job at the front of the queue, or nil
// if the queue is empty. When the pull leaves at least one job behind,
// hasJobs is re-raised so another waiter can proceed.
func (q *jobQueue) pullFront() *job {
	q.mu.Lock()
	j := q.front
	if j == nil {
		q.mu.Unlock()
		return nil
	}
	q.front = j.next
	if q.front == nil {
		q.rear = nil
	}
	j.next = nil
	q.len--
	n := q.len
	q.mu.Unlock()

	q.warnIfOversized(n)
	if n > 0 {
		q.hasJobs.post()
	}
	return j
}

// pullByID removes and returns the first job (front to rear) whose id
// matches, or nil if none match. When duplicates exist, the job closest to
// the front wins — this tie-break is an observable, tested property.
func (q *jobQueue) pullByID(id int) *job {
	q.mu.Lock()
	var prev *job
	cur := q.front
	for cur != nil {
		if cur.id == id {
			if prev == nil {
				q.front = cur.next
			} else {
				prev.next = cur.next
			}
			if cur == q.rear {
				q.rear = prev
			}
			cur.next = nil
			q.len--
			n := q.len
			q.mu.Unlock()

			q.warnIfOversized(n)
			if n > 0 {
				q.hasJobs.post()
			}
			return cur
		}
		prev = cur
		cur = cur.next
	}
	q.mu.Unlock()
	return nil
}

// clear discards every resident job and resets the queue (and its
// semaphore) to empty. Used by Destroy to drop unclaimed completions and
// never-run pending jobs.
func (q *jobQueue) clear() {
	q.mu.Lock()
	q.front = nil
	q.rear = nil
	q.len = 0
	q.mu.Unlock()
	q.hasJobs.reset()
}

// length returns the current queue length. Callers observing it outside
// the queue's own mutex (as Pool.QueueOutLen does) get an approximate
// snapshot, per spec.md §4.D.
func (q *jobQueue) length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.len
}

func (q *jobQueue) warnIfOversized(n int) {
	if n <= q.warnAt || q.logger == nil {
		return
	}
	q.logger.WithFields(logrus.Fields{
		"queue":     q.name,
		"length":    n,
		"threshold": q.warnAt,
	}).Warn("jobpool: queue length exceeds configured warning threshold")
}
