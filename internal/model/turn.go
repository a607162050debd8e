package model

import "time"

// ConversationTurn is one user message and the assistant reply to it.
type ConversationTurn struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}
