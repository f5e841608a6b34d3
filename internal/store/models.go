package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

type ChatSession struct {
	ID        string    `json:"id"` // Using UUID for external ID
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID        string    `json:"id"` // Using UUID for external ID
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Context memory types. One user_profile record per user is expected by
// convention (seeded at signup), not enforced by the schema.
const (
	ContextUserProfile         = "user_profile"
	ContextInteractionPattern  = "interaction_pattern"
	ContextGoal                = "goal"
	ContextPreference          = "preference"
	ContextLearnedBehavior     = "learned_behavior"
	ContextConversationContext = "conversation_context"
)

// DefaultImportance is assigned when a memory is saved without a score.
const DefaultImportance = 5

type Memory struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	ContextType     string         `json:"context_type"`
	ContextData     map[string]any `json:"context_data"`
	ImportanceScore int            `json:"importance_score"`
	LastAccessed    time.Time      `json:"last_accessed"`
	CreatedAt       time.Time      `json:"created_at"`
}

type UserPreferences struct {
	UserID        int64     `json:"user_id"`
	ResponseStyle string    `json:"response_style"`
	CreatedAt     time.Time `json:"created_at"`
}
