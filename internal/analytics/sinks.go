package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/iwvelando/calculator-hub/internal/config"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LogSink writes events to the application log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Send(_ context.Context, env Envelope) error {
	fields := []zap.Field{
		zap.String("op", "analytics.LogSink.Send"),
		zap.String("type", env.Event.Type),
		zap.String("category", env.Event.Category),
		zap.String("action", env.Event.Action),
		zap.String("label", env.Event.Label),
		zap.String("path", env.Event.Path),
		zap.Int64("timestamp", env.Event.Timestamp),
		zap.String("locale", env.Locale),
	}
	if env.Event.Value != nil {
		fields = append(fields, zap.Float64("value", *env.Event.Value))
	}
	s.logger.Info("analytics event received", fields...)
	return nil
}

func (s *LogSink) Close() error { return nil }

type measurementEvent struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

type measurementPayload struct {
	ClientID string             `json:"client_id"`
	Events   []measurementEvent `json:"events"`
}

// MeasurementSink posts events to a measurement protocol collector.
type MeasurementSink struct {
	endpoint string
	client   *http.Client
}

// NewMeasurementSink creates a sink posting to endpoint. The measurement id
// and api secret are appended as query parameters when set.
func NewMeasurementSink(endpoint, measurementID, apiSecret string, timeout time.Duration) (*MeasurementSink, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid analytics endpoint: %w", err)
	}
	q := u.Query()
	if measurementID != "" {
		q.Set("measurement_id", measurementID)
	}
	if apiSecret != "" {
		q.Set("api_secret", apiSecret)
	}
	u.RawQuery = q.Encode()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MeasurementSink{endpoint: u.String(), client: &http.Client{Timeout: timeout}}, nil
}

func (s *MeasurementSink) Send(ctx context.Context, env Envelope) error {
	params := map[string]interface{}{
		"category": env.Event.Category,
		"action":   env.Event.Action,
		"locale":   env.Locale,
	}
	if env.Event.Label != "" {
		params["label"] = env.Event.Label
	}
	if env.Event.Value != nil {
		params["value"] = *env.Event.Value
	}

	body, err := json.Marshal(measurementPayload{
		ClientID: env.ClientID,
		Events:   []measurementEvent{{Name: env.Event.Type, Params: params}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("collector responded with status %d", resp.StatusCode)
	}
	return nil
}

func (s *MeasurementSink) Close() error { return nil }

// messageWriter is the subset of *kafkago.Writer the kafka sink needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaSink publishes events as JSON keyed by client id.
type KafkaSink struct {
	writer messageWriter
	topic  string
}

// NewKafkaSink creates a sink writing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafkago.RequireOne,
		},
		topic: topic,
	}
}

func (s *KafkaSink) Send(ctx context.Context, env Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg := kafkago.Message{
		Key:   []byte(env.ClientID),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event-type", Value: []byte(env.Event.Type)},
			{Key: "locale", Value: []byte(env.Locale)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// NewSink builds the sink named by cfg.Sink.
func NewSink(cfg config.AnalyticsConfig, logger *zap.Logger) (Sink, error) {
	switch cfg.Sink {
	case "", "log":
		return NewLogSink(logger), nil
	case "http":
		return NewMeasurementSink(cfg.Endpoint, cfg.MeasurementID, cfg.APISecret, 5*time.Second)
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("analytics kafka sink requires at least one broker")
		}
		return NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	default:
		return nil, fmt.Errorf("unknown analytics sink %q", cfg.Sink)
	}
}
