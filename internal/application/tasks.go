package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-tactician/internal/logging"
)

// TaskState is the lifecycle state of a background task.
type TaskState string

// Background task lifecycle states.
const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
)

// Task is the observable record of one background operation, such as a
// fire-and-forget ingestion sweep.
type Task struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	State      TaskState `json:"state"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
	Result     any       `json:"result,omitempty"`
}

// TaskTracker runs background operations fire-and-forget while keeping
// their state observable, so operational tooling can report in-flight
// ingestion instead of losing track of detached work. No caller blocks
// on task completion.
type TaskTracker struct {
	baseCtx context.Context
	log     *logging.Logger

	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewTaskTracker creates a tracker whose tasks run under baseCtx.
// Cancelling baseCtx stops in-flight sweeps between fetches; completed
// work (already-cached matches) is preserved.
func NewTaskTracker(baseCtx context.Context, log *logging.Logger) *TaskTracker {
	return &TaskTracker{
		baseCtx: baseCtx,
		log:     log,
		tasks:   make(map[string]*Task),
	}
}

// Launch starts fn in the background and returns the task ID
// immediately. The function's result or error is recorded on the task.
func (t *TaskTracker) Launch(kind string, fn func(ctx context.Context) (any, error)) string {
	task := &Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		State:     TaskPending,
		StartedAt: time.Now(),
	}

	t.mu.Lock()
	t.tasks[task.ID] = task
	t.mu.Unlock()

	go func() {
		t.setState(task.ID, TaskRunning, nil, "")

		result, err := fn(t.baseCtx)
		if err != nil {
			t.setState(task.ID, TaskFailed, result, err.Error())
			if t.log != nil {
				t.log.WithError(err).WithField("task_id", task.ID).WithField("kind", kind).Error("background task failed")
			}
			return
		}
		t.setState(task.ID, TaskSucceeded, result, "")
		if t.log != nil {
			t.log.WithField("task_id", task.ID).WithField("kind", kind).Info("background task finished")
		}
	}()

	return task.ID
}

// Get returns a snapshot of one task.
func (t *TaskTracker) Get(id string) (Task, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *task, true
}

// List returns snapshots of all tasks, most recently started first.
func (t *TaskTracker) List() []Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Task, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (t *TaskTracker) setState(id string, state TaskState, result any, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return
	}
	task.State = state
	task.Error = errMsg
	if result != nil {
		task.Result = result
	}
	if state == TaskSucceeded || state == TaskFailed {
		task.FinishedAt = time.Now()
	}
}
