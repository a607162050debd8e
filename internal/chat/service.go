package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MikeSquared-Agency/civixity/internal/chatctx"
	"github.com/MikeSquared-Agency/civixity/internal/hermes"
	"github.com/MikeSquared-Agency/civixity/internal/metrics"
	"github.com/MikeSquared-Agency/civixity/internal/model"
	"github.com/MikeSquared-Agency/civixity/internal/prompt"
)

// ErrMessageRequired is returned for an empty or whitespace-only message.
var ErrMessageRequired = errors.New("message is required")

// ContextAssembler gathers prompt context for a request.
type ContextAssembler interface {
	Assemble(ctx context.Context, userID string) chatctx.Context
}

// Generator produces the assistant reply for a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TurnWriter persists a completed exchange.
type TurnWriter interface {
	InsertTurn(ctx context.Context, t model.ConversationTurn) error
}

// Publisher announces events to the rest of the platform.
type Publisher interface {
	Publish(subject string, data any) error
}

type Request struct {
	Message string  `json:"message"`
	UserID  *string `json:"userId"`
}

func (r Request) userID() string {
	if r.UserID == nil {
		return ""
	}
	return strings.TrimSpace(*r.UserID)
}

type ReplyContext struct {
	TotalPosts    string `json:"totalPosts"`
	HasRecentData bool   `json:"hasRecentData"`
}

type Reply struct {
	Response  string       `json:"response"`
	Timestamp string       `json:"timestamp"`
	Context   ReplyContext `json:"context"`
}

// Service runs one chat exchange end to end. It holds no per-request state.
type Service struct {
	assembler ContextAssembler
	generator Generator
	turns     TurnWriter
	publisher Publisher
	composer  prompt.Composer
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// Option tunes a Service.
type Option func(*Service)

// WithPublisher announces stored turns on NATS.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPromptBudget caps the composed prompt length; zero disables the cap.
func WithPromptBudget(maxChars int) Option {
	return func(s *Service) { s.composer.MaxChars = maxChars }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(a ContextAssembler, g Generator, w TurnWriter, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		assembler: a,
		generator: g,
		turns:     w,
		logger:    logger,
		tracer:    otel.Tracer("github.com/MikeSquared-Agency/civixity/internal/chat"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Respond validates req, grounds it in recent data, generates a reply and
// records the turn for known users. Only validation and generation errors
// are returned; context and persistence failures degrade silently.
func (s *Service) Respond(ctx context.Context, req Request) (*Reply, error) {
	start := s.now()
	if strings.TrimSpace(req.Message) == "" {
		metrics.ObserveChat(0, metrics.OutcomeInvalid)
		return nil, ErrMessageRequired
	}
	userID := req.userID()

	ctx, span := s.tracer.Start(ctx, "chat.respond",
		trace.WithAttributes(attribute.Bool("chat.anonymous", userID == "")))
	defer span.End()

	assembled := s.assemble(ctx, userID)

	promptText, trim := s.composer.Compose(req.Message, assembled.History.Turns, assembled.Issues.Text)
	if trim.Any() {
		s.logger.WarnContext(ctx, "prompt trimmed to budget",
			"dropped_turns", trim.DroppedTurns,
			"dropped_summary", trim.DroppedSummary,
			"over_budget", trim.OverBudget,
			"prompt_chars", len(promptText))
	}

	response, err := s.generate(ctx, promptText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		metrics.ObserveChat(s.now().Sub(start), metrics.OutcomeError)
		return nil, err
	}

	if userID != "" {
		s.persist(ctx, model.ConversationTurn{
			UserID:    userID,
			Message:   req.Message,
			Response:  response,
			Timestamp: s.now().UTC(),
		})
	}

	// Only report data the model was actually given.
	grounded := assembled.Issues.Text != "" && !trim.DroppedSummary
	totalPosts := "None"
	if grounded {
		totalPosts = "Available"
	}

	metrics.ObserveChat(s.now().Sub(start), metrics.OutcomeSuccess)
	return &Reply{
		Response:  response,
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
		Context: ReplyContext{
			TotalPosts:    totalPosts,
			HasRecentData: grounded,
		},
	}, nil
}

func (s *Service) assemble(ctx context.Context, userID string) chatctx.Context {
	ctx, span := s.tracer.Start(ctx, "chat.assemble")
	defer span.End()

	c := s.assembler.Assemble(ctx, userID)
	span.SetAttributes(
		attribute.String("chat.issues", c.Issues.Status.String()),
		attribute.String("chat.history", c.History.Status.String()),
		attribute.Int("chat.history_turns", len(c.History.Turns)),
	)
	return c
}

func (s *Service) generate(ctx context.Context, promptText string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.generate",
		trace.WithAttributes(attribute.Int("chat.prompt_chars", len(promptText))))
	defer span.End()

	start := s.now()
	response, err := s.generator.Generate(ctx, promptText)
	metrics.ObserveGeneration(s.now().Sub(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider error")
		s.logger.ErrorContext(ctx, "generation failed", "error", err)
		return "", err
	}
	return response, nil
}

// persist writes the turn inline. A failure is logged and counted but never
// changes the reply: the user already has their answer.
func (s *Service) persist(ctx context.Context, t model.ConversationTurn) {
	ctx, span := s.tracer.Start(ctx, "chat.persist")
	defer span.End()

	if err := s.turns.InsertTurn(ctx, t); err != nil {
		span.RecordError(err)
		metrics.TurnPersistFailed()
		s.logger.ErrorContext(ctx, "failed to record chat turn", "user_id", t.UserID, "error", err)
		return
	}

	if s.publisher == nil {
		return
	}
	// The table has no id column; the event id only correlates consumers.
	id := uuid.New()
	if err := s.publisher.Publish(hermes.SubjectTurnRecorded, hermes.NewTurnRecorded(id, t)); err != nil {
		s.logger.WarnContext(ctx, "failed to publish turn event", "turn_id", id, "error", err)
	}
}
