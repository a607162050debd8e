package prompt

import (
	"strings"

	"github.com/MikeSquared-Agency/civixity/internal/chatctx"
	"github.com/MikeSquared-Agency/civixity/internal/model"
)

// Build lays out the request context: history, latest message and
// instructions, then the issue summary. Without history only the summary and
// the latest message are emitted.
func Build(latest, history, summary string) string {
	var b strings.Builder
	if history != "" {
		b.WriteString("Conversation history (oldest to newest):\n")
		b.WriteString(history)
		b.WriteString("\n\nLatest user message:\nUser: ")
		b.WriteString(latest)
		b.WriteString("\n\n")
		b.WriteString(historyInstructions)
		b.WriteString("\n\n")
		b.WriteString(summary)
		return b.String()
	}
	b.WriteString(summary)
	b.WriteString("\n\nLatest user message:\nUser: ")
	b.WriteString(latest)
	return b.String()
}

// Wrap places the request context inside the assistant persona and response
// rules. This is the exact text sent to the provider.
func Wrap(question, context string) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	if context != "" {
		b.WriteString("Context from database: ")
		b.WriteString(context)
	}
	b.WriteString("\n\nUser question: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(responseInstructions)
	b.WriteString("\n\nResponse:")
	return b.String()
}

// Trim records what Compose removed to fit the budget.
type Trim struct {
	DroppedTurns   int
	DroppedSummary bool
	// OverBudget is set when the prompt still exceeds MaxChars after every
	// optional block was dropped. The latest message is never cut.
	OverBudget bool
}

func (t Trim) Any() bool {
	return t.DroppedTurns > 0 || t.DroppedSummary || t.OverBudget
}

// Composer builds the final prompt under an optional character budget.
type Composer struct {
	// MaxChars bounds the final prompt length in bytes. Zero disables the budget.
	MaxChars int
}

// Compose builds and wraps the prompt. turns must be oldest first. When a
// budget is set, the oldest turns go first, then the issue summary.
func (c Composer) Compose(latest string, turns []model.ConversationTurn, summary string) (string, Trim) {
	var trim Trim
	render := func() string {
		return Wrap(latest, Build(latest, chatctx.RenderTranscript(turns), summary))
	}

	out := render()
	if c.MaxChars <= 0 {
		return out, trim
	}
	for len(out) > c.MaxChars && len(turns) > 0 {
		turns = turns[1:]
		trim.DroppedTurns++
		out = render()
	}
	if len(out) > c.MaxChars && summary != "" {
		summary = ""
		trim.DroppedSummary = true
		out = render()
	}
	trim.OverBudget = len(out) > c.MaxChars
	return out, trim
}
