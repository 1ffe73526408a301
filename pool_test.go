package jobpool

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/zoobzio/clockz"
)

type PoolTestSuite struct {
	suite.Suite
}

func TestPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

func (ts *PoolTestSuite) testConfig(numWorkers int) Config {
	cfg := DefaultConfig()
	cfg.NumWorkers = numWorkers
	cfg.Logger = logrus.New()
	cfg.Logger.SetLevel(logrus.PanicLevel)
	return cfg
}

func (ts *PoolTestSuite) TestNewDefaults() {
	p, err := New(4)
	ts.Require().NoError(err)
	defer p.Destroy()
	ts.Equal(4, len(p.workers))
}

func (ts *PoolTestSuite) TestStartupClamp() {
	// spec.md §8 scenario 4: init(-5) succeeds with zero workers.
	p, err := NewWithConfig(ts.testConfig(-5))
	ts.Require().NoError(err)
	defer p.Destroy()

	ts.Equal(0, len(p.workers))

	err = p.AddWork(1, func(any) int { return 42 }, nil)
	ts.NoError(err)

	_, err = p.FindResult(1, 5, time.Millisecond)
	ts.ErrorIs(err, ErrNotFound, "no worker is alive to ever complete the job")
}

func (ts *PoolTestSuite) TestRoundTripLaw() {
	p, err := NewWithConfig(ts.testConfig(2))
	ts.Require().NoError(err)
	defer p.Destroy()

	err = p.AddWork(42, func(arg any) int { return arg.(int) + 100 }, 5)
	ts.Require().NoError(err)

	result, err := p.FindResult(42, 200, time.Millisecond)
	ts.Require().NoError(err)
	ts.Equal(105, result)

	_, err = p.FindResult(42, 3, time.Millisecond)
	ts.ErrorIs(err, ErrNotFound, "a second retrieval with no resubmission must miss")
}

func (ts *PoolTestSuite) TestDuplicateIdentifierFrontFirst() {
	p, err := NewWithConfig(ts.testConfig(1))
	ts.Require().NoError(err)
	defer p.Destroy()

	var mu sync.Mutex
	order := 0
	nextOrder := func(any) int {
		mu.Lock()
		defer mu.Unlock()
		order++
		return order
	}

	ts.Require().NoError(p.AddWork(9, nextOrder, nil))
	p.Wait()
	ts.Require().NoError(p.AddWork(9, nextOrder, nil))
	p.Wait()

	first, err := p.FindResult(9, 200, time.Millisecond)
	ts.Require().NoError(err)
	second, err := p.FindResult(9, 200, time.Millisecond)
	ts.Require().NoError(err)

	ts.Equal(1, first, "the completion that arrived first is retrieved first")
	ts.Equal(2, second)
}

func (ts *PoolTestSuite) TestSumOfIncrements() {
	// spec.md §8 scenario 1.
	p, err := NewWithConfig(ts.testConfig(4))
	ts.Require().NoError(err)
	defer p.Destroy()

	var mu sync.Mutex
	sum := 0
	inc := func(any) int {
		mu.Lock()
		sum++
		mu.Unlock()
		return 1
	}

	for i := 0; i < 1000; i++ {
		ts.Require().NoError(p.AddWork(i, inc, nil))
	}

	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	ts.Equal(1000, sum)
}

func (ts *PoolTestSuite) TestActiveWorkerCount() {
	// spec.md §8 scenario 2, scaled to keep the suite fast: 4 of 10
	// workers run a job that blocks for a fixed duration; NumThreadsWorking
	// reports 4 while they run and QueueOutLen catches up once they finish.
	p, err := NewWithConfig(ts.testConfig(10))
	ts.Require().NoError(err)
	defer p.Destroy()

	const jobDuration = 150 * time.Millisecond
	sleepy := func(any) int {
		time.Sleep(jobDuration)
		return 0
	}

	for i := 0; i < 4; i++ {
		ts.Require().NoError(p.AddWork(i, sleepy, nil))
	}

	time.Sleep(jobDuration / 2)
	ts.Equal(4, p.NumThreadsWorking())
	ts.Equal(0, p.QueueOutLen())

	time.Sleep(jobDuration)
	ts.Equal(4, p.QueueOutLen())
	ts.Equal(0, p.NumThreadsWorking())
}

func (ts *PoolTestSuite) TestRandomIdentifierCorrelation() {
	// spec.md §8 scenario 3.
	p, err := NewWithConfig(ts.testConfig(4))
	ts.Require().NoError(err)
	defer p.Destroy()

	ids := make([]int, 100)
	for i := range ids {
		ids[i] = (i*i)%100 + 1 // deterministic but collision-prone, as the spec allows
	}

	f := func(arg any) int { return arg.(int) + 100 }
	for _, id := range ids {
		ts.Require().NoError(p.AddWork(id, f, id))
	}

	successes := 0
	for _, id := range ids {
		result, err := p.FindResult(id, 500, time.Millisecond)
		if err == nil {
			ts.Equal(id+100, result)
			successes++
		}
	}
	ts.Equal(100, successes)
}

func (ts *PoolTestSuite) TestBoundedFindResultOnEmptyPool() {
	// spec.md §8 scenario 5: ~5ms bound against an empty pool.
	p, err := NewWithConfig(ts.testConfig(2))
	ts.Require().NoError(err)
	defer p.Destroy()

	start := time.Now()
	_, err = p.FindResult(42, 5, time.Millisecond)
	elapsed := time.Since(start)

	ts.ErrorIs(err, ErrNotFound)
	ts.Less(elapsed, 50*time.Millisecond)
}

func (ts *PoolTestSuite) TestFindResultPollsOnConfiguredClock() {
	clock := clockz.NewFakeClock()
	cfg := ts.testConfig(0)
	cfg.Clock = clock
	p, err := NewWithConfig(cfg)
	ts.Require().NoError(err)
	defer p.Destroy()

	type outcome struct {
		result int
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := p.FindResult(1, 3, 10*time.Millisecond)
		done <- outcome{result, err}
	}()

	time.Sleep(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()
	time.Sleep(10 * time.Millisecond)
	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()

	select {
	case o := <-done:
		ts.ErrorIs(o.err, ErrNotFound)
	case <-time.After(time.Second):
		ts.Fail("FindResult did not return after the fake clock advanced past its retry budget")
	}
}

func (ts *PoolTestSuite) TestDestroyDuringBacklog() {
	// spec.md §8 scenario 6.
	p, err := NewWithConfig(ts.testConfig(4))
	ts.Require().NoError(err)

	var running sync.WaitGroup
	running.Add(4)
	longJob := func(any) int {
		running.Done()
		time.Sleep(100 * time.Millisecond)
		return 0
	}

	for i := 0; i < 100; i++ {
		ts.Require().NoError(p.AddWork(i, longJob, nil))
	}

	running.Wait() // the 4 workers have all picked up a job.

	start := time.Now()
	p.Destroy()
	elapsed := time.Since(start)

	ts.GreaterOrEqual(elapsed, 90*time.Millisecond, "Destroy must outlast the in-flight payloads")
	metrics := p.Metrics()
	ts.Equal(int64(100), metrics.JobsSubmitted)
	ts.Greater(metrics.JobsDiscarded, int64(0), "jobs still queued at shutdown are discarded, not run")
}

func (ts *PoolTestSuite) TestPauseResume() {
	p, err := NewWithConfig(ts.testConfig(2))
	ts.Require().NoError(err)
	defer p.Destroy()

	p.Pause()

	ts.Require().NoError(p.AddWork(1, func(any) int { return 7 }, nil))
	time.Sleep(50 * time.Millisecond)

	_, err = p.FindResult(1, 3, time.Millisecond)
	ts.ErrorIs(err, ErrNotFound, "a paused pool must not complete jobs")

	p.Resume()
	// waitWhileOnHold rechecks onHold once per second of real time, so
	// Resume's effect can take up to ~1s to be observed; budget generously.
	result, err := p.FindResult(1, 2500, time.Millisecond)
	ts.Require().NoError(err)
	ts.Equal(7, result)
}

func (ts *PoolTestSuite) TestPoolClosedRejectsAddWork() {
	p, err := NewWithConfig(ts.testConfig(1))
	ts.Require().NoError(err)
	p.Destroy()

	err = p.AddWork(1, func(any) int { return 0 }, nil)
	ts.ErrorIs(err, ErrPoolClosed)
}

func (ts *PoolTestSuite) TestDestroyOnNilPoolIsNoOp() {
	var p *Pool
	ts.NotPanics(func() { p.Destroy() })
}

func (ts *PoolTestSuite) TestWaitTimeout() {
	p, err := NewWithConfig(ts.testConfig(1))
	ts.Require().NoError(err)
	defer p.Destroy()

	ts.Require().NoError(p.AddWork(1, func(any) int {
		time.Sleep(200 * time.Millisecond)
		return 0
	}, nil))

	err = p.WaitTimeout(20 * time.Millisecond)
	ts.ErrorIs(err, ErrWaitTimeout)

	err = p.WaitTimeout(time.Second)
	ts.NoError(err)
}

func (ts *PoolTestSuite) TestPoolLifecycleRepeatedly() {
	// Mirrors original_source/example.c's stress loop (scaled down): the
	// create/submit/retrieve/destroy cycle run back to back is how the
	// source library's own shutdown races were found.
	for i := 0; i < 5; i++ {
		p, err := NewWithConfig(ts.testConfig(4))
		ts.Require().NoError(err)

		for j := 0; j < 20; j++ {
			ts.Require().NoError(p.AddWork(j, func(arg any) int { return arg.(int) + 100 }, j))
		}

		p.Wait()

		for j := 0; j < 20; j++ {
			result, err := p.FindResult(j, 50, time.Millisecond)
			ts.Require().NoError(err)
			ts.Equal(j+100, result)
		}

		p.Destroy()
	}
}
