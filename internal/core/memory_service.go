package core

import (
	"fmt"
	"strings"

	"memochat/internal/store"
)

const (
	personaPreamble = "You are an advanced AGI-like assistant with persistent memory.\n\n"
	patternSep      = ", "
)

// MemoryStore is the slice of persistence the assembler needs. The sqlite
// store implements it; tests inject fakes.
type MemoryStore interface {
	SaveMemory(memory *store.Memory) error
	LoadMemories(userID int64, contextType string, limit int) ([]store.Memory, error)
}

// MemoryService turns a user's stored context memories into a prompt
// prefix for the completion gateway.
type MemoryService struct {
	memStore  MemoryStore
	loadLimit int
	budget    int
}

func NewMemoryService(memStore MemoryStore, loadLimit, budget int) *MemoryService {
	return &MemoryService{
		memStore:  memStore,
		loadLimit: loadLimit,
		budget:    budget,
	}
}

func (s *MemoryService) Remember(memory *store.Memory) error {
	return s.memStore.SaveMemory(memory)
}

// BuildContextPrompt loads the user's memories (already ranked by the
// store: importance desc, recency desc) and renders them.
func (s *MemoryService) BuildContextPrompt(userID int64) (string, error) {
	memories, err := s.memStore.LoadMemories(userID, "", s.loadLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load memories: %w", err)
	}
	return RenderContextPrompt(memories, s.budget), nil
}

// RenderContextPrompt builds the prompt prefix from ranked memories:
// persona preamble, one user line from the first user_profile record, then
// learned behavior patterns joined on one line. Pattern entries are
// appended greedily and stop before the character budget is exceeded, so
// an unbounded memory list cannot blow the model's input window.
func RenderContextPrompt(memories []store.Memory, budget int) string {
	var prompt strings.Builder
	prompt.WriteString(personaPreamble)

	for _, m := range memories {
		if m.ContextType != store.ContextUserProfile {
			continue
		}
		name := "User"
		if n, ok := m.ContextData["name"].(string); ok && n != "" {
			name = n
		}
		prompt.WriteString("User: " + name + "\n")
		break
	}

	patternsLen := 0
	var patterns []string
	for _, m := range memories {
		if m.ContextType != store.ContextLearnedBehavior {
			continue
		}
		pattern, ok := m.ContextData["pattern"].(string)
		if !ok || pattern == "" {
			continue
		}
		entry := len(pattern)
		if len(patterns) > 0 {
			entry += len(patternSep)
		}
		if prompt.Len()+len("Known Patterns: \n")+patternsLen+entry > budget {
			break
		}
		patterns = append(patterns, pattern)
		patternsLen += entry
	}
	if len(patterns) > 0 {
		prompt.WriteString("Known Patterns: " + strings.Join(patterns, patternSep) + "\n")
	}

	return prompt.String()
}
