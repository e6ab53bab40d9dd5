package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"travel-assistant/internal/aggregate"
	"travel-assistant/internal/conversation"
	"travel-assistant/internal/domain"
	"travel-assistant/internal/integrations/gemini"
	"travel-assistant/internal/intent"
	"travel-assistant/internal/prompt"
)

const defaultMaxMessageLen = 500

// Terminal replies shown when a cycle fails partway; both end the cycle
// with an error-kind assistant message instead of a generated answer.
const (
	degradedReply         = "I'm having trouble gathering live data right now. Please try again in a moment."
	generationFailedReply = "I'm having trouble responding right now. Please try again in a moment."
)

type Aggregator interface {
	Aggregate(ctx context.Context, in aggregate.Input) (aggregate.Result, error)
}

type Generator interface {
	Generate(ctx context.Context, userQuery, systemPrompt string) (string, error)
}

type Revealer interface {
	Reveal(ctx context.Context, fullText string, onChunk func(string), onComplete func()) error
}

// Store is the slice of the conversation store the service drives.
type Store interface {
	Append(msg domain.ChatMessage) error
	PatchText(id, text string) error
	Finalize(id string, md *domain.MessageMetadata) error
	SetMarkers(markers []domain.MapMarker)
	SetDestination(d *domain.Destination)
	SetLocation(loc domain.GeoPoint)
	SetLoading(v bool)
	BeginCycle() bool
	UpdatePreferences(p conversation.PreferencesPatch)
	Reset()
	Snapshot() conversation.State
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService orchestrates one request/response cycle: classify, gather,
// synthesize, generate, reveal. One cycle runs at a time per conversation.
type ChatService struct {
	store         Store
	aggregator    Aggregator
	generator     Generator
	revealer      Revealer
	maxMessageLen int
}

type SendInput struct {
	Text string
}

type SendOutput struct {
	MessageID  string
	Answer     string
	Intent     domain.IntentKind
	Confidence float64
	Degraded   bool
}

func NewChatService(store Store, aggregator Aggregator, generator Generator, revealer Revealer, maxMessageLen int) (*ChatService, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if aggregator == nil {
		return nil, errors.New("usecase: aggregator must not be nil")
	}
	if generator == nil {
		return nil, errors.New("usecase: generator must not be nil")
	}
	if revealer == nil {
		return nil, errors.New("usecase: revealer must not be nil")
	}
	if maxMessageLen <= 0 {
		maxMessageLen = defaultMaxMessageLen
	}
	return &ChatService{
		store:         store,
		aggregator:    aggregator,
		generator:     generator,
		revealer:      revealer,
		maxMessageLen: maxMessageLen,
	}, nil
}

// Send runs a full cycle for one user message. While a cycle is in
// flight further submissions are rejected rather than queued.
func (s *ChatService) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return SendOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if len(text) > s.maxMessageLen {
		return SendOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	if !s.store.BeginCycle() {
		return SendOutput{}, newError(ErrorBusy, "request_in_flight", nil)
	}
	defer s.store.SetLoading(false)

	if err := s.store.Append(domain.ChatMessage{
		ID:        newUUID(),
		Role:      domain.RoleUser,
		Text:      text,
		CreatedAt: now(),
	}); err != nil {
		return SendOutput{}, newError(ErrorInternal, "store_append_error", err)
	}

	classified := intent.Classify(text)
	snapshot := s.store.Snapshot()

	agg, err := s.aggregator.Aggregate(ctx, aggregate.Input{
		Intent:      classified,
		Location:    snapshot.CurrentLocation,
		Preferences: snapshot.Preferences,
	})
	if err != nil {
		return s.appendDegradedReply(classified.Kind)
	}

	s.store.SetMarkers(agg.Markers)
	s.store.SetDestination(agg.Destination)

	// Without facts the exchange degrades to a plain conversation; the
	// generator answers on its own.
	systemPrompt := ""
	confidence := 0.0
	if agg.Facts != nil {
		systemPrompt = prompt.Synthesize(classified, agg.Facts)
		confidence = agg.Facts.Confidence
	}

	answer, err := s.generator.Generate(ctx, text, systemPrompt)
	if err != nil {
		// The transcript records the failure too, so the conversation
		// never ends on an unanswered user message.
		_, _ = s.appendErrorMessage(generationFailedReply, classified.Kind)
		if errors.Is(err, gemini.ErrEmptyResponse) {
			return SendOutput{}, newError(ErrorGenerationEmpty, "empty_generation", err)
		}
		if status, ok := upstreamStatusCode(err); ok && status == 429 {
			return SendOutput{}, newError(ErrorRateLimited, "gemini_rate_limited", err)
		}
		return SendOutput{}, newError(ErrorUpstream, "gemini_error", err)
	}

	msgID := newUUID()
	if err := s.store.Append(domain.ChatMessage{
		ID:        msgID,
		Role:      domain.RoleAssistant,
		CreatedAt: now(),
		Streaming: true,
	}); err != nil {
		return SendOutput{}, newError(ErrorInternal, "store_append_error", err)
	}

	var revealed strings.Builder
	var storeErr error
	err = s.revealer.Reveal(ctx, answer,
		func(chunk string) {
			revealed.WriteString(chunk)
			if err := s.store.PatchText(msgID, revealed.String()); err != nil && storeErr == nil {
				storeErr = err
			}
		},
		func() {
			md := &domain.MessageMetadata{Intent: classified.Kind, Confidence: confidence}
			if err := s.store.Finalize(msgID, md); err != nil && storeErr == nil {
				storeErr = err
			}
		},
	)
	if err != nil {
		// The abandoned message must not hold the streaming slot; it
		// becomes a terminal error message so the conversation stays
		// usable.
		_ = s.store.PatchText(msgID, generationFailedReply)
		_ = s.store.Finalize(msgID, &domain.MessageMetadata{Kind: domain.MessageKindError, Intent: classified.Kind})
		return SendOutput{}, newError(ErrorInternal, "reveal_interrupted", err)
	}
	if storeErr != nil {
		return SendOutput{}, newError(ErrorInternal, "store_update_error", storeErr)
	}

	return SendOutput{
		MessageID:  msgID,
		Answer:     answer,
		Intent:     classified.Kind,
		Confidence: confidence,
	}, nil
}

// appendDegradedReply closes a cycle whose data gathering failed with a
// terminal, non-streaming error message.
func (s *ChatService) appendDegradedReply(kind domain.IntentKind) (SendOutput, error) {
	msgID, err := s.appendErrorMessage(degradedReply, kind)
	if err != nil {
		return SendOutput{}, newError(ErrorInternal, "store_append_error", err)
	}
	return SendOutput{
		MessageID: msgID,
		Answer:    degradedReply,
		Intent:    kind,
		Degraded:  true,
	}, nil
}

func (s *ChatService) appendErrorMessage(text string, kind domain.IntentKind) (string, error) {
	msgID := newUUID()
	err := s.store.Append(domain.ChatMessage{
		ID:        msgID,
		Role:      domain.RoleAssistant,
		Text:      text,
		CreatedAt: now(),
		Metadata:  &domain.MessageMetadata{Kind: domain.MessageKindError, Intent: kind},
	})
	return msgID, err
}

// Reset starts the conversation over. The welcome message, the caller's
// location and their preferences survive.
func (s *ChatService) Reset() {
	s.store.Reset()
}

// State returns a full snapshot of the conversation.
func (s *ChatService) State() conversation.State {
	return s.store.Snapshot()
}

// UpdatePreferences validates and applies a partial preferences update.
func (s *ChatService) UpdatePreferences(p conversation.PreferencesPatch) error {
	if p.Vehicle != nil && !validVehicle(*p.Vehicle) {
		return newError(ErrorInvalidInput, "invalid_vehicle", nil)
	}
	if p.Budget != nil && !validBudget(*p.Budget) {
		return newError(ErrorInvalidInput, "invalid_budget", nil)
	}
	if p.RadiusMeters != nil && *p.RadiusMeters <= 0 {
		return newError(ErrorInvalidInput, "invalid_radius", nil)
	}
	s.store.UpdatePreferences(p)
	return nil
}

// UpdateLocation validates and stores the caller's reported position.
func (s *ChatService) UpdateLocation(loc domain.GeoPoint) error {
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return newError(ErrorInvalidInput, "invalid_coordinates", nil)
	}
	s.store.SetLocation(loc)
	return nil
}

func validVehicle(v domain.Vehicle) bool {
	switch v {
	case domain.VehicleBike, domain.VehicleCar, domain.VehicleAuto:
		return true
	}
	return false
}

func validBudget(b domain.Budget) bool {
	switch b {
	case domain.BudgetLow, domain.BudgetMedium, domain.BudgetHigh:
		return true
	}
	return false
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

var newUUID = func() string {
	return uuid.NewString()
}

var now = func() time.Time {
	return time.Now().UTC()
}
