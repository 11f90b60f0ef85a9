package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pvu/tasksync/internal/model"
	"github.com/pvu/tasksync/internal/views"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rec.Tasks())
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var draft model.TaskDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := draft.Normalized().Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task := s.rec.Add(r.Context(), draft)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	patch, err := decodePatch(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task, ok := s.rec.Update(r.Context(), r.PathValue("id"), patch)
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if !s.rec.Delete(r.Context(), r.PathValue("id")) {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	task, ok := s.rec.ToggleComplete(r.Context(), r.PathValue("id"))
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.rec.Refresh(r.Context())
	writeJSON(w, http.StatusOK, s.rec.Tasks())
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	today := time.Now()
	if v := r.URL.Query().Get("today"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			http.Error(w, "invalid today parameter", http.StatusBadRequest)
			return
		}
		today = parsed
	}

	partition := views.Compute(s.rec.Tasks(), today)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"today":     partition.Today,
		"upcoming":  partition.Upcoming,
		"overdue":   partition.Overdue,
		"completed": partition.Completed,
		"unread":    views.UnreadCount(s.rec.Notifications()),
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rec.ChatHistory())
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.rec.SendMessage(r.Context(), body.Message)
	if err != nil {
		http.Error(w, "assistant unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reply":                 result.Reply,
		"proposals":             result.Proposals,
		"awaiting_confirmation": result.AwaitingConfirmation,
	})
}

func (s *Server) handleChatConfirm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rec.ConfirmProposals(r.Context()))
}

func (s *Server) handleChatDiscard(w http.ResponseWriter, r *http.Request) {
	s.rec.DiscardProposals()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.rec.Notifications())
}

func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	s.rec.MarkNotificationRead(r.Context(), r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// decodePatch builds a sparse TaskPatch from a JSON object. A key that
// is absent produces no patch field; a key set to null explicitly
// clears a nullable field.
func decodePatch(body map[string]json.RawMessage) (model.TaskPatch, error) {
	var patch model.TaskPatch

	for key, raw := range body {
		var err error
		switch key {
		case "title":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Title = model.Set(v)
			}
		case "description":
			var v string
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Description = model.Set(v)
			}
		case "due_date":
			var v *time.Time
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.DueDate = model.Set(v)
			}
		case "due_time":
			var v *string
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.DueTime = model.Set(v)
			}
		case "priority":
			var v model.Priority
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Priority = model.Set(v)
			}
		case "status":
			var v model.Status
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Status = model.Set(v)
			}
		case "category":
			var v model.Category
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Category = model.Set(v)
			}
		case "tags":
			var v []string
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Tags = model.Set(v)
			}
		case "assignees":
			var v []string
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Assignees = model.Set(v)
			}
		case "completed_at":
			var v *time.Time
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.CompletedAt = model.Set(v)
			}
		case "recurring":
			var v bool
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.Recurring = model.Set(v)
			}
		case "recurrence_pattern":
			var v *string
			if err = json.Unmarshal(raw, &v); err == nil {
				patch.RecurrencePattern = model.Set(v)
			}
		default:
			// Unknown keys are ignored so old clients keep working.
			continue
		}
		if err != nil {
			return model.TaskPatch{}, &model.ValidationError{Field: key, Reason: "malformed value"}
		}
	}

	return patch, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
