// Package testutil provides fake collaborators for testing the
// reconciliation core without a live backend.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pvu/tasksync/internal/assist"
	"github.com/pvu/tasksync/internal/feed"
	"github.com/pvu/tasksync/internal/model"
	"github.com/pvu/tasksync/internal/remote"
)

// FakeRemote is an in-memory stand-in for the remote task store with
// scriptable failures and an optional gate to hold update calls in
// flight.
type FakeRemote struct {
	mu    sync.Mutex
	tasks map[string]model.Task

	FailFetch  bool
	FailCreate bool
	FailUpdate bool
	FailDelete bool

	// UpdateGate, when non-nil, blocks Update calls until it is closed.
	UpdateGate chan struct{}

	// FetchGate, when non-nil, makes FetchAll snapshot the server state
	// first and then block until the gate is closed, simulating a slow
	// response carrying stale data.
	FetchGate chan struct{}

	FetchCalls  int
	CreateCalls int
	UpdateCalls int
	DeleteCalls int
}

// NewFakeRemote creates an empty fake remote store.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{tasks: make(map[string]model.Task)}
}

// Seed places a task directly into the fake server state.
func (f *FakeRemote) Seed(task model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
}

// CallCounts returns how many times each operation was invoked.
func (f *FakeRemote) CallCounts() (fetch, create, update, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FetchCalls, f.CreateCalls, f.UpdateCalls, f.DeleteCalls
}

// ServerTasks returns a copy of the fake server state.
func (f *FakeRemote) ServerTasks() []model.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out
}

func (f *FakeRemote) FetchAll(ctx context.Context, userID string) []model.Task {
	f.mu.Lock()
	f.FetchCalls++
	gate := f.FetchGate
	fail := f.FailFetch
	var owned, shared []model.Task
	for _, t := range f.tasks {
		if t.CreatedBy != nil && *t.CreatedBy == userID {
			owned = append(owned, t)
		} else {
			shared = append(shared, t)
		}
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return nil
	}
	return remote.MergeFetched(owned, shared)
}

func (f *FakeRemote) Create(ctx context.Context, userID string, draft model.TaskDraft) (*model.Task, error) {
	f.mu.Lock()
	f.CreateCalls++
	fail := f.FailCreate
	f.mu.Unlock()

	draft = draft.Normalized()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	if fail {
		return nil, fmt.Errorf("create failed")
	}

	task := model.Task{
		ID:                uuid.New().String(),
		Title:             draft.Title,
		Description:       draft.Description,
		DueDate:           draft.DueDate,
		DueTime:           draft.DueTime,
		Priority:          draft.Priority,
		Status:            draft.Status,
		Category:          draft.Category,
		Tags:              draft.Tags,
		Recurring:         draft.Recurring,
		RecurrencePattern: draft.RecurrencePattern,
		CreatedBy:         &userID,
	}

	f.mu.Lock()
	f.tasks[task.ID] = task
	f.mu.Unlock()
	return &task, nil
}

func (f *FakeRemote) Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error) {
	f.mu.Lock()
	f.UpdateCalls++
	gate := f.UpdateGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailUpdate {
		return nil, fmt.Errorf("update failed")
	}

	task, ok := f.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	patch.ApplyTo(&task)
	task.UpdatedBy = &userID
	f.tasks[taskID] = task
	return &task, nil
}

func (f *FakeRemote) Delete(ctx context.Context, userID, taskID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.FailDelete {
		return false, fmt.Errorf("delete failed")
	}
	_, ok := f.tasks[taskID]
	delete(f.tasks, taskID)
	return ok, nil
}

// FakeFeed is a scriptable change-feed subscriber.
type FakeFeed struct {
	mu         sync.Mutex
	events     chan feed.Event
	Subscribes int
	Cancels    int
}

// NewFakeFeed creates an idle fake feed.
func NewFakeFeed() *FakeFeed {
	return &FakeFeed{}
}

// Subscribe hands out a fresh event channel. The cancel function counts
// invocations and closes the stream once.
func (f *FakeFeed) Subscribe(userID string) (<-chan feed.Event, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Subscribes++
	events := make(chan feed.Event, 16)
	f.events = events

	var once sync.Once
	cancel := func() {
		f.mu.Lock()
		f.Cancels++
		f.mu.Unlock()
		once.Do(func() { close(events) })
	}
	return events, cancel, nil
}

// Emit pushes an event to the current subscriber.
func (f *FakeFeed) Emit(ev feed.Event) {
	f.mu.Lock()
	events := f.events
	f.mu.Unlock()
	if events != nil {
		events <- ev
	}
}

// SubscribeCount returns how many subscriptions were opened.
func (f *FakeFeed) SubscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Subscribes
}

// CancelCount returns how many times cancel was invoked.
func (f *FakeFeed) CancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Cancels
}

// FakeEngine returns a scripted reply for every message.
type FakeEngine struct {
	Reply assist.Reply
	Err   error
}

func (f *FakeEngine) ProcessMessage(
	ctx context.Context,
	userID, text string,
	history []model.ChatMessage,
) (*assist.Reply, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	reply := f.Reply
	return &reply, nil
}
