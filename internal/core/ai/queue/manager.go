// Package queue 非同步匯入的有界工作隊列與 worker pool。
package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"recipe-importer/internal/infrastructure/config"
	"recipe-importer/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrClosed 隊列已關閉
var ErrClosed = errors.New("queue manager is closed")

// JobStatus 工作狀態
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
)

// Task 工作內容；回傳值會存入 Job.Result
type Task func(ctx context.Context) (interface{}, error)

// Job 工作快照
type Job struct {
	ID         string      `json:"id"`
	Status     JobStatus   `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  *time.Time  `json:"started_at,omitempty"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Result     interface{} `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`

	// Err 原始錯誤，供 API 層轉換錯誤碼
	Err error `json:"-"`
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
	TrackedJobs    int `json:"tracked_jobs"`
}

type request struct {
	id   string
	task Task
}

// Manager 隊列管理器
type Manager struct {
	config    config.QueueConfig
	queue     chan *request
	done      chan struct{}
	processed int64

	mu   sync.RWMutex
	jobs map[string]*Job

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	now       func() time.Time
}

// NewManager 創建新的隊列管理器
func NewManager(cfg config.QueueConfig) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	return &Manager{
		config: cfg,
		queue:  make(chan *request, cfg.MaxSize),
		done:   make(chan struct{}),
		jobs:   make(map[string]*Job),
		now:    time.Now,
	}
}

// Start 啟動 worker；ctx 結束時執行中的工作會收到取消
func (m *Manager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		for i := 0; i < m.config.Workers; i++ {
			m.wg.Add(1)
			go m.worker(ctx, i)
		}
		common.LogInfo("匯入隊列已啟動",
			zap.Int("workers", m.config.Workers),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
	})
}

// Enqueue 將工作加入隊列；隊列已滿時回傳 common.ErrQueueFull
func (m *Manager) Enqueue(task Task) (*Job, error) {
	select {
	case <-m.done:
		return nil, ErrClosed
	default:
	}

	m.prune()

	job := &Job{
		ID:        common.GenerateUUID(),
		Status:    StatusQueued,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	select {
	case m.queue <- &request{id: job.ID, task: task}:
		common.LogInfo("Request enqueued",
			zap.String("job_id", job.ID),
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		snapshot := *job
		return &snapshot, nil
	default:
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return nil, common.ErrQueueFull
	}
}

// Get 取得工作快照
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
		TrackedJobs:    len(m.jobs),
	}
}

// Close 停止接受新工作並等待 worker 完成
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

func (m *Manager) worker(ctx context.Context, id int) {
	defer m.wg.Done()

	for {
		// 關閉時優先處理已排隊的工作
		select {
		case req := <-m.queue:
			m.run(ctx, req)
			continue
		default:
		}

		select {
		case req := <-m.queue:
			m.run(ctx, req)
		case <-m.done:
			m.drain(ctx)
			return
		case <-ctx.Done():
			common.LogDebug("worker 停止", zap.Int("worker", id))
			return
		}
	}
}

func (m *Manager) drain(ctx context.Context) {
	for {
		select {
		case req := <-m.queue:
			m.run(ctx, req)
		default:
			return
		}
	}
}

func (m *Manager) run(ctx context.Context, req *request) {
	started := m.now()
	m.update(req.id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &started
	})

	result, err := m.safeRun(ctx, req.task)

	finished := m.now()
	m.update(req.id, func(j *Job) {
		j.FinishedAt = &finished
		j.Result = result
		if err != nil {
			j.Status = StatusFailed
			j.Error = err.Error()
			j.Err = err
			return
		}
		j.Status = StatusSucceeded
	})
	atomic.AddInt64(&m.processed, 1)

	common.LogInfo("匯入工作完成",
		zap.String("job_id", req.id),
		zap.Duration("duration", finished.Sub(started)),
		zap.Bool("success", err == nil),
	)
}

// safeRun 工作 panic 時轉為錯誤，避免 worker 結束
func (m *Manager) safeRun(ctx context.Context, task Task) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("匯入工作 panic", zap.Any("panic", r))
			err = common.ErrInternalError
		}
	}()
	return task(ctx)
}

func (m *Manager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}

// prune 移除超過保留時間的已完成工作
func (m *Manager) prune() {
	if m.config.ResultTTL <= 0 {
		return
	}
	cutoff := m.now().Add(-m.config.ResultTTL)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, job := range m.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}
