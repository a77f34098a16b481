package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(4)
	pool.Start()
	defer pool.Stop()

	var done atomic.Int64
	for i := 0; i < 32; i++ {
		pool.Submit(Job{
			ID: "job",
			Run: func(ctx context.Context) error {
				done.Add(1)
				return nil
			},
		})
	}
	pool.Wait()

	if got := done.Load(); got != 32 {
		t.Errorf("ran %d jobs, want 32", got)
	}
}

func TestPoolSurvivesFailingJobs(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	defer pool.Stop()

	var done atomic.Int64
	for i := 0; i < 8; i++ {
		i := i
		pool.Submit(Job{
			ID: "job",
			Run: func(ctx context.Context) error {
				if i%2 == 0 {
					return errors.New("probe failed")
				}
				done.Add(1)
				return nil
			},
		})
	}
	pool.Wait()

	if got := done.Load(); got != 4 {
		t.Errorf("ran %d successful jobs, want 4", got)
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := NewScheduler("not a cron spec", func(ctx context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}

	s, err := NewScheduler("@every 1h", func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Stop()
}
