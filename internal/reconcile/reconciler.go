// Package reconcile owns the canonical in-memory task list for the
// current session and keeps it consistent across the remote store, the
// local fallback store, and the live change feed. All mutation flows
// through the Reconciler; every other component only reads snapshots or
// submits intents.
package reconcile

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pvu/tasksync/internal/assist"
	"github.com/pvu/tasksync/internal/auth"
	"github.com/pvu/tasksync/internal/feed"
	"github.com/pvu/tasksync/internal/model"
)

// RemoteStore is the authoritative backend. FetchAll never fails
// outright; the mutating calls report failure so the Reconciler can
// degrade to the local fallback path.
type RemoteStore interface {
	FetchAll(ctx context.Context, userID string) []model.Task
	Create(ctx context.Context, userID string, draft model.TaskDraft) (*model.Task, error)
	Update(ctx context.Context, userID, taskID string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) (bool, error)
}

// LocalStore is the on-device fallback persistence.
type LocalStore interface {
	LoadSnapshot(ctx context.Context) []model.Task
	SaveSnapshot(ctx context.Context, tasks []model.Task) error
	AppendChatMessage(ctx context.Context, msg model.ChatMessage) error
	ChatMessages(ctx context.Context) ([]model.ChatMessage, error)
	CreateNotification(ctx context.Context, n model.Notification) error
	Notifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

// Reconciler is the state controller. Mutations are optimistic: remote
// failures degrade to the local path and are never surfaced as a lost
// edit.
type Reconciler struct {
	local  LocalStore
	remote RemoteStore
	feed   feed.Subscriber
	engine assist.Engine

	mu            sync.Mutex
	session       auth.Session
	gen           int
	tasks         []model.Task
	chat          []model.ChatMessage
	notifications []model.Notification
	pending       []model.TaskDraft
	unsubscribe   func()

	// lastMutated and deleted track optimistic mutations so a stale
	// fetch cannot regress them. Both are pruned on merge.
	lastMutated map[string]time.Time
	deleted     map[string]time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRemote attaches the authoritative backend.
func WithRemote(remote RemoteStore) Option {
	return func(r *Reconciler) { r.remote = remote }
}

// WithFeed attaches the live change-feed subscriber.
func WithFeed(sub feed.Subscriber) Option {
	return func(r *Reconciler) { r.feed = sub }
}

// WithEngine attaches the chat proposal engine.
func WithEngine(engine assist.Engine) Option {
	return func(r *Reconciler) { r.engine = engine }
}

// New creates a Reconciler seeded with the persisted chat history and
// notifications. Tasks are not loaded until SetSession establishes the
// identity.
func New(local LocalStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		local:       local,
		lastMutated: make(map[string]time.Time),
		deleted:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if chat, err := local.ChatMessages(ctx); err != nil {
		log.Printf("reconcile: loading chat history: %v", err)
	} else {
		r.chat = chat
	}
	if ns, err := local.Notifications(ctx); err != nil {
		log.Printf("reconcile: loading notifications: %v", err)
	} else {
		r.notifications = ns
	}

	return r
}

// Session returns the current session identity.
func (r *Reconciler) Session() auth.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Tasks returns a copy of the canonical task list.
func (r *Reconciler) Tasks() []model.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Task, len(r.tasks))
	for i, t := range r.tasks {
		out[i] = t.Clone()
	}
	return out
}

// SetSession switches the Reconciler to a new identity: the old feed
// subscription is cancelled, the canonical list is reloaded from the
// appropriate source, and a fresh subscription is opened when
// authenticated. In-flight calls from the previous session are dropped
// when they resolve.
func (r *Reconciler) SetSession(ctx context.Context, session auth.Session) {
	r.mu.Lock()
	oldUnsub := r.unsubscribe
	r.unsubscribe = nil
	r.gen++
	gen := r.gen
	r.session = session
	r.pending = nil
	r.lastMutated = make(map[string]time.Time)
	r.deleted = make(map[string]time.Time)
	r.mu.Unlock()

	if oldUnsub != nil {
		oldUnsub()
	}

	var tasks []model.Task
	if session.Authenticated && r.remote != nil {
		tasks = r.remote.FetchAll(ctx, session.UserID)
	} else {
		tasks = r.local.LoadSnapshot(ctx)
	}

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}
	r.tasks = tasks
	r.mu.Unlock()

	if !session.Authenticated || r.feed == nil {
		return
	}

	events, cancel, err := r.feed.Subscribe(session.UserID)
	if err != nil {
		// No automatic reconnect; the next session change retries.
		log.Printf("reconcile: subscribing change feed: %v", err)
		return
	}

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		cancel()
		return
	}
	r.unsubscribe = cancel
	r.mu.Unlock()

	go r.consumeFeed(gen, events)
}

// Close cancels the active feed subscription.
func (r *Reconciler) Close() {
	r.mu.Lock()
	unsub := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Add creates a task. Authenticated adds go through the remote store
// and adopt the server row; an unauthenticated session or a failed
// remote call falls back to a locally synthesized task, so the task
// always appears immediately.
func (r *Reconciler) Add(ctx context.Context, draft model.TaskDraft) model.Task {
	draft = draft.Normalized()
	// Every task starts its lifecycle pending; completion is a
	// separate transition that stamps the timestamp.
	draft.Status = model.StatusPending

	r.mu.Lock()
	session := r.session
	gen := r.gen
	r.mu.Unlock()

	if session.Authenticated && r.remote != nil {
		created, err := r.remote.Create(ctx, session.UserID, draft)
		if err == nil {
			r.mu.Lock()
			if r.gen == gen {
				r.upsertFront(*created)
				r.lastMutated[created.ID] = time.Now()
			}
			r.mu.Unlock()
			return *created
		}
		log.Printf("reconcile: remote create failed, keeping local copy: %v", err)
	}

	task := synthesizeTask(draft, session)

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return task
	}
	r.upsertFront(task)
	r.lastMutated[task.ID] = time.Now()
	persist := !session.Authenticated
	snapshot := r.copyTasksLocked()
	r.mu.Unlock()

	if persist {
		if err := r.local.SaveSnapshot(ctx, snapshot); err != nil {
			log.Printf("reconcile: saving snapshot: %v", err)
		}
	}
	return task
}

// Update applies a sparse patch to the task. The authenticated path
// adopts the server's returned row on success; on failure the patch is
// still applied to the canonical copy, accepting a divergence window
// until the next fetch or feed event. It reports whether the task was
// present when the intent was issued.
func (r *Reconciler) Update(ctx context.Context, taskID string, patch model.TaskPatch) (model.Task, bool) {
	patch.NormalizeCompletion(time.Now().UTC())

	r.mu.Lock()
	session := r.session
	gen := r.gen
	idx := r.indexOf(taskID)
	if idx < 0 {
		r.mu.Unlock()
		return model.Task{}, false
	}

	if !session.Authenticated || r.remote == nil {
		patch.ApplyTo(&r.tasks[idx])
		r.lastMutated[taskID] = time.Now()
		applied := r.tasks[idx].Clone()
		snapshot := r.copyTasksLocked()
		r.mu.Unlock()

		if err := r.local.SaveSnapshot(ctx, snapshot); err != nil {
			log.Printf("reconcile: saving snapshot: %v", err)
		}
		return applied, true
	}
	r.mu.Unlock()

	updated, err := r.remote.Update(ctx, session.UserID, taskID, patch)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return model.Task{}, false
	}

	// The task may have been deleted while the call was in flight; a
	// resolved update must not re-insert it.
	idx = r.indexOf(taskID)
	if idx < 0 {
		return model.Task{}, false
	}

	if err != nil {
		log.Printf("reconcile: remote update failed, applying locally: %v", err)
		patch.ApplyTo(&r.tasks[idx])
	} else {
		r.tasks[idx] = *updated
	}
	r.lastMutated[taskID] = time.Now()
	return r.tasks[idx].Clone(), true
}

// Delete removes the task from the canonical list immediately. The
// remote delete runs afterwards; its failure is logged, not surfaced,
// and not retried.
func (r *Reconciler) Delete(ctx context.Context, taskID string) bool {
	r.mu.Lock()
	session := r.session
	idx := r.indexOf(taskID)
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.tasks = append(r.tasks[:idx], r.tasks[idx+1:]...)
	delete(r.lastMutated, taskID)
	r.deleted[taskID] = time.Now()
	persist := !session.Authenticated
	snapshot := r.copyTasksLocked()
	r.mu.Unlock()

	if persist {
		if err := r.local.SaveSnapshot(ctx, snapshot); err != nil {
			log.Printf("reconcile: saving snapshot: %v", err)
		}
		return true
	}

	if session.Authenticated && r.remote != nil {
		if _, err := r.remote.Delete(ctx, session.UserID, taskID); err != nil {
			log.Printf("reconcile: remote delete failed: %v", err)
		}
	}
	return true
}

// ToggleComplete flips the task between pending and completed.
// Completing stamps the completion time; un-completing clears it rather
// than restoring any prior value.
func (r *Reconciler) ToggleComplete(ctx context.Context, taskID string) (model.Task, bool) {
	r.mu.Lock()
	idx := r.indexOf(taskID)
	if idx < 0 {
		r.mu.Unlock()
		return model.Task{}, false
	}
	completed := r.tasks[idx].IsCompleted()
	r.mu.Unlock()

	var patch model.TaskPatch
	if completed {
		patch.Status = model.Set(model.StatusPending)
		patch.CompletedAt = model.Set[*time.Time](nil)
	} else {
		now := time.Now().UTC()
		patch.Status = model.Set(model.StatusCompleted)
		patch.CompletedAt = model.Set(&now)
	}
	return r.Update(ctx, taskID, patch)
}

// Refresh reloads the canonical list from its source of truth and
// merges the result without regressing optimistic mutations the fetch
// does not yet know about.
func (r *Reconciler) Refresh(ctx context.Context) {
	r.mu.Lock()
	session := r.session
	gen := r.gen
	r.mu.Unlock()

	if !session.Authenticated || r.remote == nil {
		snapshot := r.local.LoadSnapshot(ctx)
		r.mu.Lock()
		if r.gen == gen {
			r.tasks = snapshot
		}
		r.mu.Unlock()
		return
	}

	fetchStart := time.Now()
	fetched := r.remote.FetchAll(ctx, session.UserID)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return
	}
	r.tasks = r.mergeFetchLocked(fetched, fetchStart)
}

// mergeFetchLocked merges a fetch result into the canonical list. An
// entry mutated after the fetch was issued keeps its canonical copy; an
// entry deleted after the fetch was issued stays deleted; a task the
// fetch does not know about survives only if it was mutated after the
// fetch was issued. Tracking maps are pruned afterwards.
func (r *Reconciler) mergeFetchLocked(fetched []model.Task, fetchStart time.Time) []model.Task {
	fetchedIDs := make(map[string]struct{}, len(fetched))
	result := make([]model.Task, 0, len(fetched))

	// Optimistic entries unknown to the fetch stay at the front,
	// preserving their newest-first position.
	for _, cur := range r.tasks {
		if mutAt, ok := r.lastMutated[cur.ID]; ok && mutAt.After(fetchStart) {
			if !containsTask(fetched, cur.ID) {
				fetchedIDs[cur.ID] = struct{}{}
				result = append(result, cur)
			}
		}
	}

	for _, t := range fetched {
		if _, ok := fetchedIDs[t.ID]; ok {
			continue
		}
		if delAt, ok := r.deleted[t.ID]; ok && delAt.After(fetchStart) {
			continue
		}
		if mutAt, ok := r.lastMutated[t.ID]; ok && mutAt.After(fetchStart) {
			if idx := r.indexOf(t.ID); idx >= 0 {
				fetchedIDs[t.ID] = struct{}{}
				result = append(result, r.tasks[idx])
				continue
			}
		}
		fetchedIDs[t.ID] = struct{}{}
		result = append(result, t)
	}

	for id, at := range r.lastMutated {
		if !at.After(fetchStart) {
			delete(r.lastMutated, id)
		}
	}
	for id, at := range r.deleted {
		if !at.After(fetchStart) {
			delete(r.deleted, id)
		}
	}

	return result
}

// consumeFeed forwards change-feed events into the merge path until
// the stream closes or the session moves on.
func (r *Reconciler) consumeFeed(gen int, events <-chan feed.Event) {
	for ev := range events {
		r.applyEvent(gen, ev)
	}
}

// applyEvent merges one feed event. Inserts are idempotent against
// duplicate delivery; updates for unknown identifiers are ignored (the
// row will arrive via a future fetch); deletes for unknown identifiers
// are no-ops.
func (r *Reconciler) applyEvent(gen int, ev feed.Event) {
	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}

	var notify *model.Notification

	switch ev.Table {
	case feed.TableTasks:
		switch ev.Op {
		case feed.OpInsert:
			if ev.Task != nil && r.indexOf(ev.Task.ID) < 0 {
				r.tasks = append([]model.Task{*ev.Task}, r.tasks...)
				notify = r.collaboratorNoteLocked(*ev.Task, "added")
			}
		case feed.OpUpdate:
			if ev.Task != nil {
				if idx := r.indexOf(ev.Task.ID); idx >= 0 {
					r.tasks[idx] = *ev.Task
					notify = r.collaboratorNoteLocked(*ev.Task, "updated")
				}
			}
		case feed.OpDelete:
			if idx := r.indexOf(ev.TaskID); idx >= 0 {
				r.tasks = append(r.tasks[:idx], r.tasks[idx+1:]...)
			}
		}
	case feed.TableChatMessages:
		if ev.Op == feed.OpInsert && ev.Message != nil && !r.hasChatMessageLocked(ev.Message.ID) {
			r.chat = append(r.chat, *ev.Message)
		}
	}

	if notify != nil {
		r.notifications = append([]model.Notification{*notify}, r.notifications...)
	}
	r.mu.Unlock()

	if notify != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.local.CreateNotification(ctx, *notify); err != nil {
			log.Printf("reconcile: persisting notification: %v", err)
		}
	}
}

// collaboratorNoteLocked builds a notification when the event was
// caused by someone other than the current user. Returns nil for the
// user's own echoes.
func (r *Reconciler) collaboratorNoteLocked(task model.Task, verb string) *model.Notification {
	editor := task.UpdatedBy
	if editor == nil {
		editor = task.CreatedBy
	}
	if editor == nil || *editor == r.session.UserID {
		return nil
	}
	return &model.Notification{
		ID:        uuid.New().String(),
		TaskID:    task.ID,
		Message:   "Task " + verb + ": " + task.Title,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifications returns a copy of the notification list, newest first.
func (r *Reconciler) Notifications() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// MarkNotificationRead marks a notification read in memory and in the
// local store.
func (r *Reconciler) MarkNotificationRead(ctx context.Context, id string) {
	r.mu.Lock()
	for i := range r.notifications {
		if r.notifications[i].ID == id {
			r.notifications[i].Read = true
			break
		}
	}
	r.mu.Unlock()

	if err := r.local.MarkNotificationRead(ctx, id); err != nil {
		log.Printf("reconcile: marking notification read: %v", err)
	}
}

// synthesizeTask builds the local fallback task for a draft. The
// identifier derives from the client clock, matching local-creation
// semantics; the server assigns authoritative identifiers on the
// remote path.
func synthesizeTask(draft model.TaskDraft, session auth.Session) model.Task {
	now := time.Now().UTC()
	task := model.Task{
		ID:                strconv.FormatInt(now.UnixNano(), 10),
		Title:             draft.Title,
		Description:       draft.Description,
		DueDate:           draft.DueDate,
		DueTime:           draft.DueTime,
		Priority:          draft.Priority,
		Status:            draft.Status,
		Category:          draft.Category,
		Tags:              draft.Tags,
		CreatedAt:         now,
		Recurring:         draft.Recurring,
		RecurrencePattern: draft.RecurrencePattern,
	}
	if session.Authenticated {
		uid := session.UserID
		task.CreatedBy = &uid
	}
	return task
}

// upsertFront prepends the task, replacing any existing entry with the
// same identifier so duplicate confirmations stay idempotent.
func (r *Reconciler) upsertFront(task model.Task) {
	if idx := r.indexOf(task.ID); idx >= 0 {
		r.tasks = append(r.tasks[:idx], r.tasks[idx+1:]...)
	}
	r.tasks = append([]model.Task{task}, r.tasks...)
}

func (r *Reconciler) indexOf(taskID string) int {
	for i := range r.tasks {
		if r.tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func (r *Reconciler) copyTasksLocked() []model.Task {
	out := make([]model.Task, len(r.tasks))
	copy(out, r.tasks)
	return out
}

func (r *Reconciler) hasChatMessageLocked(id string) bool {
	for i := range r.chat {
		if r.chat[i].ID == id {
			return true
		}
	}
	return false
}

func containsTask(tasks []model.Task, id string) bool {
	for i := range tasks {
		if tasks[i].ID == id {
			return true
		}
	}
	return false
}
