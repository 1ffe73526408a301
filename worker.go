package jobpool

import "time"

// worker is a long-lived goroutine paired with a friendly index and a
// back-pointer to the owning pool. It has no state of its own beyond that:
// all queues and counters it touches live on the Pool.
type worker struct {
	id   int
	pool *Pool
}

// run is the worker loop from spec.md §4.C. It blocks on the input queue's
// semaphore, dequeues a job, runs its payload, and pushes the finished job
// into queueOut, repeating until the pool's keepalive flag is cleared.
func (w *worker) run() {
	p := w.pool
	p.thcountMu.Lock()
	p.numAlive++
	p.thcountMu.Unlock()

	p.logger.WithField("worker_id", w.id).Debug("jobpool: worker started")

	for {
		p.queueIn.hasJobs.wait()

		if !p.keepalive.Load() {
			break
		}

		w.waitWhileOnHold()

		p.thcountMu.Lock()
		p.numWorking++
		p.thcountMu.Unlock()

		j := p.queueIn.pullFront()
		if j != nil {
			j.result = j.fn(j.arg)
			p.queueOut.push(j)
		}

		p.thcountMu.Lock()
		p.numWorking--
		if p.numWorking == 0 {
			p.allIdle.Broadcast()
		}
		p.thcountMu.Unlock()

		if p.cfg.WorkerYield > 0 {
			<-p.clock.After(p.cfg.WorkerYield)
		}
	}

	p.thcountMu.Lock()
	p.numAlive--
	p.thcountMu.Unlock()

	p.logger.WithField("worker_id", w.id).Debug("jobpool: worker exiting")
}

// waitWhileOnHold suspends the worker between dequeues while the pool is
// paused, without touching queue state. This is a per-pool-flag check at
// the loop's natural suspension point — the Go-idiomatic replacement for
// the source's asynchronous, process-wide pause signal handler (spec.md
// §9 already asks for on_hold to become per-pool; moving the check point
// from "preempts arbitrary user code" to "between jobs" is a deliberate,
// documented behavior change: a job already running completes even if
// Pause is called mid-execution).
func (w *worker) waitWhileOnHold() {
	p := w.pool
	if !p.onHold.Load() {
		return
	}
	p.logger.WithField("worker_id", w.id).Debug("jobpool: worker on hold")
	for p.onHold.Load() && p.keepalive.Load() {
		<-p.clock.After(time.Second)
	}
}
