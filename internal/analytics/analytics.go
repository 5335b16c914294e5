// Package analytics accepts analytics beacons from the calculator pages and
// forwards them to a configured sink.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/iwvelando/calculator-hub/internal/config"
	"go.uber.org/zap"
)

// ErrInvalidEvent is returned when a required event field is missing.
var ErrInvalidEvent = errors.New("missing required event data")

// Event is an analytics beacon.
type Event struct {
	Type      string   `json:"type"`
	Category  string   `json:"category"`
	Action    string   `json:"action"`
	Label     string   `json:"label,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Path      string   `json:"path,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
}

// Validate checks the required fields.
func (e Event) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Type) == "" {
		missing = append(missing, "type")
	}
	if strings.TrimSpace(e.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(e.Action) == "" {
		missing = append(missing, "action")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidEvent, strings.Join(missing, ", "))
	}
	return nil
}

// Envelope is what a sink receives: the event plus request context.
type Envelope struct {
	Event    Event  `json:"event"`
	Locale   string `json:"locale"`
	ClientID string `json:"clientId,omitempty"`
}

// Sink delivers accepted events.
type Sink interface {
	Send(ctx context.Context, env Envelope) error
	Close() error
}

// Service validates events and applies the enabled flag, path exclusions and
// sampling before handing them to the sink.
type Service struct {
	cfg    config.AnalyticsConfig
	sink   Sink
	logger *zap.Logger
	now    func() time.Time
	sample func() float64
}

// NewService creates a Service delivering to sink.
func NewService(cfg config.AnalyticsConfig, sink Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		now:    time.Now,
		sample: func() float64 { return rand.Float64() * 100 },
	}
}

// Track validates and forwards ev. It reports whether the event was
// forwarded; a disabled service, an excluded path or a sampled-out event is
// accepted without forwarding.
func (s *Service) Track(ctx context.Context, locale, clientID string, ev Event) (bool, error) {
	if !s.cfg.Enabled {
		return false, nil
	}
	if err := ev.Validate(); err != nil {
		return false, err
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = s.now().UnixMilli()
	}
	if s.excluded(ev.Path) {
		return false, nil
	}
	if s.cfg.SampleRate < 100 && s.sample() >= s.cfg.SampleRate {
		return false, nil
	}

	env := Envelope{Event: ev, Locale: locale, ClientID: clientID}
	if err := s.sink.Send(ctx, env); err != nil {
		s.logger.Error("failed to forward analytics event",
			zap.String("op", "analytics.Service.Track"),
			zap.String("type", ev.Type),
			zap.String("locale", locale),
			zap.Error(err),
		)
		return false, fmt.Errorf("forward analytics event: %w", err)
	}
	return true, nil
}

// Close releases the sink.
func (s *Service) Close() error {
	if s.sink == nil {
		return nil
	}
	return s.sink.Close()
}

func (s *Service) excluded(path string) bool {
	if path == "" {
		return false
	}
	for _, prefix := range s.cfg.ExcludePaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
