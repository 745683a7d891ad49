package progress

import (
	"sort"
	"sync"

	"newsharvest/internal/domain"
)

// TaskStates keeps the latest per-source task snapshot for each running
// batch. It backs the polling status endpoint for callers that do not hold
// a live observer connection.
type TaskStates struct {
	mu     sync.RWMutex
	groups map[string]map[string]domain.FetchTask
}

// NewTaskStates creates an empty state store.
func NewTaskStates() *TaskStates {
	return &TaskStates{
		groups: make(map[string]map[string]domain.FetchTask),
	}
}

// Put stores or replaces the snapshot for one task.
func (s *TaskStates) Put(task domain.FetchTask) {
	s.mu.Lock()
	if s.groups[task.TaskGroupID] == nil {
		s.groups[task.TaskGroupID] = make(map[string]domain.FetchTask)
	}
	s.groups[task.TaskGroupID][task.SourceID] = task
	s.mu.Unlock()
}

// Apply merges a progress event into the stored snapshot of its task.
// Batch-level events and events for unknown tasks are ignored.
func (s *TaskStates) Apply(event domain.ProgressEvent) {
	if event.SourceID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.groups[event.TaskGroupID]
	if tasks == nil {
		return
	}
	task, ok := tasks[event.SourceID]
	if !ok {
		return
	}

	task.Step = event.Step
	task.Progress = event.Progress
	task.Message = event.Message
	if event.ItemsSaved != nil {
		task.ItemsSaved = *event.ItemsSaved
	}
	tasks[event.SourceID] = task
}

// Snapshot returns the current member tasks of a batch, ordered by source id.
func (s *TaskStates) Snapshot(taskGroupID string) []domain.FetchTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]domain.FetchTask, 0, len(s.groups[taskGroupID]))
	for _, task := range s.groups[taskGroupID] {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].SourceID < tasks[j].SourceID })
	return tasks
}

// Drop discards all state kept for a batch.
func (s *TaskStates) Drop(taskGroupID string) {
	s.mu.Lock()
	delete(s.groups, taskGroupID)
	s.mu.Unlock()
}
