package store

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/civixity/internal/model"
)

// RecentTurns returns up to limit turns for userID, newest first.
func (s *Store) RecentTurns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id::text, message, response, timestamp
		FROM chat_interactions
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, unavailable("query chat_interactions", err)
	}
	defer rows.Close()

	var out []model.ConversationTurn
	for rows.Next() {
		var t model.ConversationTurn
		if err := rows.Scan(&t.UserID, &t.Message, &t.Response, &t.Timestamp); err != nil {
			return nil, unavailable("scan chat_interaction", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate chat_interactions", err)
	}
	return out, nil
}

// InsertTurn appends a turn. Row identity is left to the database; a zero
// timestamp is filled in.
func (s *Store) InsertTurn(ctx context.Context, t model.ConversationTurn) error {
	t = normaliseTurn(t)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_interactions (user_id, message, response, timestamp)
		VALUES ($1, $2, $3, $4)`,
		t.UserID, t.Message, t.Response, t.Timestamp,
	)
	if err != nil {
		return unavailable("insert chat_interaction", err)
	}
	return nil
}

func normaliseTurn(t model.ConversationTurn) model.ConversationTurn {
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	return t
}
