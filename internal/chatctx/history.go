package chatctx

import (
	"context"
	"slices"
	"strings"

	"github.com/MikeSquared-Agency/civixity/internal/metrics"
	"github.com/MikeSquared-Agency/civixity/internal/model"
)

// HistorySection is the rendered transcript plus the turns behind it,
// oldest first.
type HistorySection struct {
	Section
	Turns []model.ConversationTurn
}

// History loads up to limit prior turns for userID and renders them oldest
// to newest. Anonymous users (empty userID) have no history.
func (a *Assembler) History(ctx context.Context, userID string, limit int) HistorySection {
	if userID == "" {
		return HistorySection{}
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	turns, err := a.turns.RecentTurns(ctx, userID, limit)
	if err != nil {
		a.logger.WarnContext(ctx, "conversation history unavailable", "user_id", userID, "error", err)
		metrics.ContextDegraded(metrics.SectionHistory)
		return HistorySection{Section: Section{Status: StatusUnavailable}}
	}
	if len(turns) == 0 {
		return HistorySection{}
	}

	// The store hands back newest first; the transcript must read oldest first.
	ordered := slices.Clone(turns)
	slices.Reverse(ordered)

	return HistorySection{
		Section: Section{Text: RenderTranscript(ordered), Status: StatusAvailable},
		Turns:   ordered,
	}
}

// RenderTranscript writes turns as alternating "User:" and "Bot:" lines in
// the order given.
func RenderTranscript(turns []model.ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, "User: "+t.Message+"\nBot: "+t.Response)
	}
	return strings.Join(lines, "\n")
}
