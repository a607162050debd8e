package hermes

import (
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/civixity/internal/model"
)

// SubjectTurnRecorded is published after a conversation turn is stored.
const SubjectTurnRecorded = "civixity.chat.turn.recorded"

// TurnRecorded announces a stored turn without carrying message content.
type TurnRecorded struct {
	TurnID        string `json:"turn_id"`
	UserID        string `json:"user_id"`
	MessageChars  int    `json:"message_chars"`
	ResponseChars int    `json:"response_chars"`
	Timestamp     string `json:"timestamp"`
}

// NewTurnRecorded builds the event for a persisted turn.
func NewTurnRecorded(id uuid.UUID, t model.ConversationTurn) TurnRecorded {
	return TurnRecorded{
		TurnID:        id.String(),
		UserID:        t.UserID,
		MessageChars:  len([]rune(t.Message)),
		ResponseChars: len([]rune(t.Response)),
		Timestamp:     t.Timestamp.UTC().Format(time.RFC3339),
	}
}
