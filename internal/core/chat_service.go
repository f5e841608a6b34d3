package core

import (
	"fmt"

	"memochat/internal/store"
)

// DefaultHistoryLimit bounds how many messages a history read returns.
const DefaultHistoryLimit = 50

// ChatStore is the persistence surface the chat service needs.
type ChatStore interface {
	ResolveCurrentSession(userID int64) (*store.ChatSession, error)
	AppendMessages(sessionID string, messages []store.ChatMessage) ([]store.ChatMessage, error)
	History(userID int64, limit int) ([]store.ChatMessage, error)
	GetUserByID(id int64) (*store.User, error)
	GetUserByEmail(email string) (*store.User, error)
	CreateUser(email, passwordHash, name string) (*store.User, error)
}

type ChatService struct {
	chatStore ChatStore
}

func NewChatService(chatStore ChatStore) *ChatService {
	return &ChatService{chatStore: chatStore}
}

func (s *ChatService) GetUserByID(id int64) (*store.User, error) {
	return s.chatStore.GetUserByID(id)
}

func (s *ChatService) GetUserByEmail(email string) (*store.User, error) {
	return s.chatStore.GetUserByEmail(email)
}

func (s *ChatService) CreateUser(email, passwordHash, name string) (*store.User, error) {
	return s.chatStore.CreateUser(email, passwordHash, name)
}

// SaveConversation appends finalized turns to the user's current session,
// creating one when the user has none yet.
func (s *ChatService) SaveConversation(userID int64, messages []store.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	for _, msg := range messages {
		if msg.Role != store.RoleUser && msg.Role != store.RoleAssistant {
			return fmt.Errorf("invalid message role %q", msg.Role)
		}
	}

	session, err := s.chatStore.ResolveCurrentSession(userID)
	if err != nil {
		return fmt.Errorf("failed to resolve session: %w", err)
	}
	if _, err := s.chatStore.AppendMessages(session.ID, messages); err != nil {
		return fmt.Errorf("failed to append messages: %w", err)
	}
	return nil
}

func (s *ChatService) History(userID int64) ([]store.ChatMessage, error) {
	return s.chatStore.History(userID, DefaultHistoryLimit)
}
