package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pvu/tasksync/internal/model"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
	apiURL           = "https://api.anthropic.com/v1/messages"
	apiVersion       = "2023-06-01"

	// historyLimit caps how many past messages are sent per request.
	historyLimit = 20
)

// ClaudeEngine implements Engine over the Claude Messages API.
type ClaudeEngine struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewClaudeEngine creates an engine with the given configuration.
func NewClaudeEngine(apiKey, modelName string, maxTokens int) *ClaudeEngine {
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &ClaudeEngine{
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
		client:    &http.Client{},
	}
}

// ProcessMessage sends the user's message with recent history to the
// API and parses the structured reply.
func (e *ClaudeEngine) ProcessMessage(
	ctx context.Context,
	userID, text string,
	history []model.ChatMessage,
) (*Reply, error) {
	messages := buildAPIMessages(history, text)

	reqBody := apiRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    systemPrompt(),
		Messages:  messages,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, apiURL, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	var textParts []string
	for _, block := range result.Content {
		if block.Type == "text" {
			textParts = append(textParts, block.Text)
		}
	}

	return ParseReply(strings.Join(textParts, ""))
}

// ParseReply extracts the structured reply from the model's text
// output. The model is instructed to answer with a single JSON object;
// a non-JSON answer is treated as a plain conversational reply with no
// proposals.
func ParseReply(text string) (*Reply, error) {
	trimmed := strings.TrimSpace(text)

	// Tolerate fenced output.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	if !strings.HasPrefix(trimmed, "{") {
		return &Reply{Text: text}, nil
	}

	var wire struct {
		Reply                string      `json:"reply"`
		Tasks                []wireDraft `json:"tasks"`
		RequiresConfirmation bool        `json:"requires_confirmation"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wire); err != nil {
		return &Reply{Text: text}, nil
	}

	reply := &Reply{
		Text:                 wire.Reply,
		RequiresConfirmation: wire.RequiresConfirmation,
	}
	for _, d := range wire.Tasks {
		reply.Proposals = append(reply.Proposals, d.toDraft())
	}
	return reply, nil
}

// wireDraft is the JSON shape the model emits per proposed task.
type wireDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	DueTime     string   `json:"due_time"`
	Priority    string   `json:"priority"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

func (d wireDraft) toDraft() model.TaskDraft {
	draft := model.TaskDraft{
		Title:       d.Title,
		Description: d.Description,
		Priority:    model.Priority(d.Priority),
		Status:      model.StatusPending,
		Category:    model.Category(d.Category),
		Tags:        d.Tags,
	}
	if d.DueDate != "" {
		if due, err := time.Parse("2006-01-02", d.DueDate); err == nil {
			draft.DueDate = &due
		}
	}
	if d.DueTime != "" {
		dt := d.DueTime
		draft.DueTime = &dt
	}
	return draft.Normalized()
}

// systemPrompt instructs the model to answer with the structured JSON
// shape ParseReply expects.
func systemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are a personal task management assistant. ")
	sb.WriteString("Users describe things they need to do in natural language, ")
	sb.WriteString("and you extract concrete tasks from their messages.\n\n")

	sb.WriteString("Always respond with a single JSON object of this shape:\n")
	sb.WriteString(`{"reply": "<conversational answer>", "tasks": [{"title": "...", `)
	sb.WriteString(`"description": "...", "due_date": "YYYY-MM-DD", "due_time": "HH:MM", `)
	sb.WriteString(`"priority": "high|medium|low|none", "category": "work|personal|health|shopping|other", `)
	sb.WriteString(`"tags": []}], "requires_confirmation": false}` + "\n\n")

	sb.WriteString("Omit due_date and due_time when the user gave none. ")
	sb.WriteString("Set requires_confirmation to true when the user's intent is ")
	sb.WriteString("ambiguous or when the message would create three or more tasks, ")
	sb.WriteString("so the user can review before anything is saved. ")
	sb.WriteString("Leave tasks empty for questions and small talk. ")
	sb.WriteString("Keep replies concise.")

	return sb.String()
}

// buildAPIMessages converts recent history plus the new user message
// into the Claude API message format.
func buildAPIMessages(history []model.ChatMessage, text string) []apiMessage {
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	var messages []apiMessage
	for _, msg := range history {
		messages = append(messages, apiMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	messages = append(messages, apiMessage{
		Role:    string(model.RoleUser),
		Content: text,
	})
	return messages
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
