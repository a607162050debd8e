package chatctx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/civixity/internal/metrics"
	"github.com/MikeSquared-Agency/civixity/internal/model"
	"github.com/MikeSquared-Agency/civixity/internal/store"
)

const (
	// DefaultIssueWindow is how many recent reports ground the assistant.
	DefaultIssueWindow = 20
	// DefaultHistoryLimit is how many prior turns are replayed.
	DefaultHistoryLimit = 10
	// HighSeverity is the fixed "high severity" cut-off, assumed on a 1-5 scale.
	HighSeverity = 4
)

// IssueReader reads issue reports.
type IssueReader interface {
	ListIssues(ctx context.Context, q store.IssueQuery) ([]model.IssueReport, error)
}

// TurnReader reads a user's prior turns, newest first.
type TurnReader interface {
	RecentTurns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error)
}

// Context is everything assembled for one chat request.
type Context struct {
	Issues  Section
	History HistorySection
}

// Assembler turns store rows into bounded prompt text.
type Assembler struct {
	issues       IssueReader
	turns        TurnReader
	logger       *slog.Logger
	issueWindow  int
	historyLimit int
}

// Option tunes an Assembler.
type Option func(*Assembler)

// WithIssueWindow sets how many recent reports are summarised.
func WithIssueWindow(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.issueWindow = n
		}
	}
}

// WithHistoryLimit sets how many prior turns Assemble replays.
func WithHistoryLimit(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.historyLimit = n
		}
	}
}

func New(issues IssueReader, turns TurnReader, logger *slog.Logger, opts ...Option) *Assembler {
	a := &Assembler{
		issues:       issues,
		turns:        turns,
		logger:       logger,
		issueWindow:  DefaultIssueWindow,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble fetches the issue summary and, for a known user, their history.
// The two lookups are independent and run concurrently. Neither can fail the
// request: store errors degrade the affected section to empty.
func (a *Assembler) Assemble(ctx context.Context, userID string) Context {
	var out Context
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Issues = a.IssuesSummary(gctx)
		return nil
	})
	g.Go(func() error {
		out.History = a.History(gctx, userID, a.historyLimit)
		return nil
	})
	_ = g.Wait()
	return out
}

// IssuesSummary renders statistics and a per-report listing for the most
// recent reports.
func (a *Assembler) IssuesSummary(ctx context.Context) Section {
	issues, err := a.issues.ListIssues(ctx, store.IssueQuery{Limit: a.issueWindow})
	if err != nil {
		a.logger.WarnContext(ctx, "issue summary unavailable", "error", err)
		metrics.ContextDegraded(metrics.SectionIssues)
		return Section{Status: StatusUnavailable}
	}
	if len(issues) == 0 {
		return Section{Status: StatusEmpty}
	}
	return Section{Text: RenderIssues(Summarize(issues), issues), Status: StatusAvailable}
}

// Stats summarises a window of issue reports.
type Stats struct {
	Total        int
	Categories   []string
	MeanSeverity float64
	HighSeverity int
}

// Summarize computes Stats. MeanSeverity is 0 for an empty window.
func Summarize(issues []model.IssueReport) Stats {
	st := Stats{Total: len(issues)}
	seen := make(map[string]bool)
	sum := 0
	for _, is := range issues {
		if !seen[is.Category] {
			seen[is.Category] = true
			st.Categories = append(st.Categories, is.Category)
		}
		sum += is.Severity
		if is.Severity >= HighSeverity {
			st.HighSeverity++
		}
	}
	if st.Total > 0 {
		st.MeanSeverity = float64(sum) / float64(st.Total)
	}
	return st
}

// RenderIssues formats the summary block handed to the prompt builder.
func RenderIssues(st Stats, issues []model.IssueReport) string {
	var b strings.Builder
	b.WriteString("Recent Civic Issues Summary:\n")
	fmt.Fprintf(&b, "- Total posts: %d\n", st.Total)
	fmt.Fprintf(&b, "- Categories: %s\n", strings.Join(st.Categories, ", "))
	fmt.Fprintf(&b, "- Average severity: %.1f/5\n", st.MeanSeverity)
	fmt.Fprintf(&b, "- High severity issues: %d\n", st.HighSeverity)
	b.WriteString("\nRecent Posts:")
	for _, is := range issues {
		fmt.Fprintf(&b, "\n- %s (%s, Severity: %d/5, Location: %s, Engagement: %d)",
			is.Title, is.Category, is.Severity, is.Location, is.Engagement())
	}
	return b.String()
}
