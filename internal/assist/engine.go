// Package assist turns natural-language messages into structured task
// edit proposals. The core treats the engine as opaque: text in,
// proposals out.
package assist

import (
	"context"

	"github.com/pvu/tasksync/internal/model"
)

// Reply is the engine's answer to a single user message.
type Reply struct {
	// Text is the assistant's conversational response.
	Text string

	// Proposals are the task drafts extracted from the message.
	Proposals []model.TaskDraft

	// RequiresConfirmation indicates the proposals must be explicitly
	// confirmed by the user before they are applied.
	RequiresConfirmation bool
}

// Engine processes one user message in the context of the conversation
// so far.
type Engine interface {
	ProcessMessage(ctx context.Context, userID, text string, history []model.ChatMessage) (*Reply, error)
}
