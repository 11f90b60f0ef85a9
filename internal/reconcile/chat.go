package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pvu/tasksync/internal/model"
)

// ChatHistory returns a copy of the conversation, ordered by creation
// time ascending.
func (r *Reconciler) ChatHistory() []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChatMessage, len(r.chat))
	copy(out, r.chat)
	return out
}

// ChatResult is the outcome of one assistant exchange.
type ChatResult struct {
	// Reply is the assistant's message, already appended to the history.
	Reply model.ChatMessage

	// Proposals are the extracted task drafts. When AwaitingConfirmation
	// is false they have already been applied through the normal Add
	// path; otherwise they are parked until ConfirmProposals or
	// DiscardProposals.
	Proposals            []model.TaskDraft
	AwaitingConfirmation bool
}

// SendMessage records the user's message, asks the proposal engine for
// a reply, and applies any proposed drafts that do not require
// confirmation.
func (r *Reconciler) SendMessage(ctx context.Context, text string) (*ChatResult, error) {
	if r.engine == nil {
		return nil, fmt.Errorf("no chat engine configured")
	}

	r.mu.Lock()
	session := r.session
	history := make([]model.ChatMessage, len(r.chat))
	copy(history, r.chat)
	r.mu.Unlock()

	userMsg := model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	r.appendChat(ctx, userMsg)

	reply, err := r.engine.ProcessMessage(ctx, session.UserID, text, history)
	if err != nil {
		return nil, fmt.Errorf("processing message: %w", err)
	}

	assistantMsg := model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleAssistant,
		Content:   reply.Text,
		CreatedAt: time.Now().UTC(),
	}
	r.appendChat(ctx, assistantMsg)

	result := &ChatResult{
		Reply:                assistantMsg,
		Proposals:            reply.Proposals,
		AwaitingConfirmation: reply.RequiresConfirmation,
	}

	if reply.RequiresConfirmation {
		r.mu.Lock()
		r.pending = append([]model.TaskDraft(nil), reply.Proposals...)
		r.mu.Unlock()
		return result, nil
	}

	for _, draft := range reply.Proposals {
		r.Add(ctx, draft)
	}
	return result, nil
}

// PendingProposals returns the drafts awaiting confirmation.
func (r *Reconciler) PendingProposals() []model.TaskDraft {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TaskDraft, len(r.pending))
	copy(out, r.pending)
	return out
}

// ConfirmProposals applies the parked drafts through the normal Add
// path and clears them.
func (r *Reconciler) ConfirmProposals(ctx context.Context) []model.Task {
	r.mu.Lock()
	drafts := r.pending
	r.pending = nil
	r.mu.Unlock()

	added := make([]model.Task, 0, len(drafts))
	for _, draft := range drafts {
		added = append(added, r.Add(ctx, draft))
	}
	return added
}

// DiscardProposals drops the parked drafts without applying them.
func (r *Reconciler) DiscardProposals() {
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
}

// appendChat adds the message to the in-memory history and persists it
// best-effort.
func (r *Reconciler) appendChat(ctx context.Context, msg model.ChatMessage) {
	r.mu.Lock()
	r.chat = append(r.chat, msg)
	r.mu.Unlock()

	if err := r.local.AppendChatMessage(ctx, msg); err != nil {
		log.Printf("reconcile: persisting chat message: %v", err)
	}
}
