// Package conversation holds the single mutable structure of the engine.
// All mutation goes through named transitions; consumers read snapshots.
package conversation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"travel-assistant/internal/domain"
)

// DefaultWelcomeText opens every conversation and survives resets.
const DefaultWelcomeText = `**AI Travel Assistant Initialized**

I can help you with:
• **Travel planning** to any destination
• **Restaurant recommendations** with safety analysis
• **Route planning** with traffic & regulatory insights
• **Weather-aware suggestions**
• **Area analysis** for any location

Just tell me where you want to go or what you need!`

// DefaultLocation is the Mumbai fallback used until the caller reports a
// real position.
var DefaultLocation = domain.GeoPoint{Lat: 19.0760, Lng: 72.8777}

func DefaultPreferences() domain.Preferences {
	return domain.Preferences{
		Vehicle:      domain.VehicleCar,
		Budget:       domain.BudgetMedium,
		RadiusMeters: 2000,
	}
}

var (
	ErrMessageNotFound    = errors.New("conversation: message not found")
	ErrMessageFinalized   = errors.New("conversation: message already finalized")
	ErrStreamingElsewhere = errors.New("conversation: another message is still streaming")
)

// State is a read-only copy of the conversation.
type State struct {
	Messages        []domain.ChatMessage `json:"messages"`
	CurrentLocation domain.GeoPoint      `json:"currentLocation"`
	Markers         []domain.MapMarker   `json:"markers"`
	Destination     *domain.Destination  `json:"destination,omitempty"`
	Loading         bool                 `json:"loading"`
	Preferences     domain.Preferences   `json:"preferences"`
}

// PreferencesPatch updates only the fields that are set.
type PreferencesPatch struct {
	Vehicle      *domain.Vehicle `json:"vehicleType,omitempty"`
	Budget       *domain.Budget  `json:"budget,omitempty"`
	RadiusMeters *int            `json:"radius,omitempty"`
}

// Store is the single source of truth for one conversation.
type Store struct {
	mu sync.Mutex

	messages    []domain.ChatMessage
	location    domain.GeoPoint
	markers     []domain.MapMarker
	destination *domain.Destination
	loading     bool
	preferences domain.Preferences
	streamingID string

	now func() time.Time
}

type Option func(*Store)

// WithWelcomeText overrides the permanent first message.
func WithWelcomeText(text string) Option {
	return func(s *Store) {
		if text != "" {
			s.messages[0].Text = text
		}
	}
}

func WithLocation(loc domain.GeoPoint) Option {
	return func(s *Store) { s.location = loc }
}

func New(opts ...Option) *Store {
	s := &Store{
		location:    DefaultLocation,
		preferences: DefaultPreferences(),
		now:         time.Now,
	}
	s.messages = []domain.ChatMessage{{
		ID:        uuid.NewString(),
		Role:      domain.RoleSystem,
		Text:      DefaultWelcomeText,
		CreatedAt: s.now().UTC(),
	}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds a message to the end of the timeline. A streaming message
// is rejected while another one is still streaming.
func (s *Store) Append(msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" {
		return errors.New("conversation: message id must not be empty")
	}
	if msg.Streaming && s.streamingID != "" {
		return ErrStreamingElsewhere
	}
	s.messages = append(s.messages, msg)
	if msg.Streaming {
		s.streamingID = msg.ID
	}
	return nil
}

// PatchText replaces the text of the streaming message with the given id.
// Finalized messages are immutable.
func (s *Store) PatchText(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	if !s.messages[i].Streaming {
		return fmt.Errorf("%w: %s", ErrMessageFinalized, id)
	}
	s.messages[i].Text = text
	return nil
}

// Finalize ends a message's streaming phase and attaches its metadata.
func (s *Store) Finalize(id string, md *domain.MessageMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexOf(id)
	if err != nil {
		return err
	}
	if !s.messages[i].Streaming {
		return fmt.Errorf("%w: %s", ErrMessageFinalized, id)
	}
	s.messages[i].Streaming = false
	s.messages[i].Metadata = md
	if s.streamingID == id {
		s.streamingID = ""
	}
	return nil
}

// SetMarkers replaces the marker set wholesale; there is no incremental
// marker mutation, which keeps stale annotations from surviving a cycle.
func (s *Store) SetMarkers(markers []domain.MapMarker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers = append([]domain.MapMarker(nil), markers...)
}

func (s *Store) SetDestination(d *domain.Destination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == nil {
		s.destination = nil
		return
	}
	cp := *d
	s.destination = &cp
}

func (s *Store) SetLocation(loc domain.GeoPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = loc
}

func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// BeginCycle atomically claims the loading flag. It returns false when a
// cycle is already in flight, so check and claim cannot race.
func (s *Store) BeginCycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return false
	}
	s.loading = true
	return true
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// UpdatePreferences applies the set fields of the patch.
func (s *Store) UpdatePreferences(p PreferencesPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Vehicle != nil {
		s.preferences.Vehicle = *p.Vehicle
	}
	if p.Budget != nil {
		s.preferences.Budget = *p.Budget
	}
	if p.RadiusMeters != nil {
		s.preferences.RadiusMeters = *p.RadiusMeters
	}
}

// Reset truncates the timeline to the permanent welcome message and
// clears markers, destination and any streaming state. Location and
// preferences survive.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = s.messages[:1]
	s.markers = nil
	s.destination = nil
	s.streamingID = ""
	s.loading = false
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Messages:        make([]domain.ChatMessage, len(s.messages)),
		CurrentLocation: s.location,
		Markers:         append([]domain.MapMarker(nil), s.markers...),
		Loading:         s.loading,
		Preferences:     s.preferences,
	}
	for i, m := range s.messages {
		st.Messages[i] = copyMessage(m)
	}
	if s.destination != nil {
		cp := *s.destination
		st.Destination = &cp
	}
	return st
}

// Message returns a copy of one message by id.
func (s *Store) Message(id string) (domain.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.indexOf(id)
	if err != nil {
		return domain.ChatMessage{}, false
	}
	return copyMessage(s.messages[i]), true
}

func (s *Store) indexOf(id string) (int, error) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
}

func copyMessage(m domain.ChatMessage) domain.ChatMessage {
	if m.Metadata != nil {
		md := *m.Metadata
		m.Metadata = &md
	}
	return m
}
