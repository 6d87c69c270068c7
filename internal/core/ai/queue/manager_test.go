package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"
)

func waitForStatus(t *testing.T, m *Manager, id string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := m.Get(id); ok && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := m.Get(id)
	t.Fatalf("job %s did not reach %s, last = %+v", id, want, job)
	return nil
}

func TestManagerRunsJobs(t *testing.T) {
	m := NewManager(config.QueueConfig{Workers: 2, MaxSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Close()

	ok, err := m.Enqueue(func(ctx context.Context) (interface{}, error) {
		return "done", nil
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if ok.Status != StatusQueued || ok.ID == "" {
		t.Errorf("initial job = %+v", ok)
	}

	bad, _ := m.Enqueue(func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("boom")
	})

	job := waitForStatus(t, m, ok.ID, StatusSucceeded)
	if job.Result != "done" || job.StartedAt == nil || job.FinishedAt == nil {
		t.Errorf("succeeded job = %+v", job)
	}
	failed := waitForStatus(t, m, bad.ID, StatusFailed)
	if failed.Error != "boom" {
		t.Errorf("failed job error = %q", failed.Error)
	}
}

func TestManagerRecoversPanics(t *testing.T) {
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 2})
	m.Start(context.Background())
	defer m.Close()

	job, _ := m.Enqueue(func(ctx context.Context) (interface{}, error) {
		panic("unexpected")
	})
	failed := waitForStatus(t, m, job.ID, StatusFailed)
	if !errors.Is(failed.Err, common.ErrInternalError) {
		t.Errorf("err = %v", failed.Err)
	}
}

func TestManagerQueueFull(t *testing.T) {
	// 尚未啟動 worker，工作會留在隊列中
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 1})

	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }
	if _, err := m.Enqueue(noop); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := m.Enqueue(noop); !errors.Is(err, common.ErrQueueFull) {
		t.Errorf("second enqueue error = %v, want ErrQueueFull", err)
	}
	if st := m.GetQueueStatus(); st.QueueLength != 1 || st.TrackedJobs != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestManagerClosedRejectsJobs(t *testing.T) {
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 1})
	m.Start(context.Background())
	m.Close()

	if _, err := m.Enqueue(func(ctx context.Context) (interface{}, error) { return nil, nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("error = %v, want ErrClosed", err)
	}
}

func TestManagerPrunesFinishedJobs(t *testing.T) {
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 2, ResultTTL: time.Minute})
	old := time.Now().Add(-time.Hour)
	m.jobs["old"] = &Job{ID: "old", Status: StatusSucceeded, FinishedAt: &old}

	if _, err := m.Enqueue(func(ctx context.Context) (interface{}, error) { return nil, nil }); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok := m.Get("old"); ok {
		t.Error("expected old job to be pruned")
	}
}
