package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"memochat/internal/core"
	"memochat/internal/store"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	messages, err := h.chatService.History(userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to load history")
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []store.ChatMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

type SaveChatRequest struct {
	Messages []core.Turn `json:"messages"`
}

func (h *APIHandler) SaveChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req SaveChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	messages := make([]store.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role != store.RoleUser && m.Role != store.RoleAssistant {
			http.Error(w, "Invalid message role", http.StatusBadRequest)
			return
		}
		messages = append(messages, store.ChatMessage{Role: m.Role, Content: m.Content})
	}

	if err := h.chatService.SaveConversation(userID, messages); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to save chat")
		http.Error(w, "Failed to save chat", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

type StreamChatRequest struct {
	Messages    []core.Turn `json:"messages"`
	Temperature *float64    `json:"temperature"`
	MaxTokens   *int64      `json:"maxTokens"`
}

// StreamChatHandler relays the model's output chunk by chunk. The caller
// is identified by its bearer token; a client-supplied user id is not
// trusted. Nothing is persisted here — the client saves the finalized
// turns through /chat/save once the stream completes.
func (h *APIHandler) StreamChatHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req StreamChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Messages) == 0 {
		http.Error(w, "No messages provided", http.StatusBadRequest)
		return
	}

	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := int64(defaultMaxTokens)
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	contextPrompt, err := h.memoryService.BuildContextPrompt(userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to build context prompt")
		http.Error(w, "Failed to stream response", http.StatusInternalServerError)
		return
	}
	systemPrompt := contextPrompt + core.BaseSystemPrompt

	flusher, ok := w.(http.Flusher)
	if !ok {
		logrus.Error("Response writer does not support flushing")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	started := false
	emit := func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := h.streamer.Stream(r.Context(), req.Messages, systemPrompt, temperature, maxTokens, emit); err != nil {
		if !started {
			logrus.WithError(err).WithField("user_id", userID).Error("Completion stream failed")
			http.Error(w, "Failed to stream response", http.StatusInternalServerError)
			return
		}
		// Headers are gone; nothing left to do but log the truncation.
		logrus.WithError(err).WithField("user_id", userID).Warn("Completion stream interrupted mid-response")
	}
}
