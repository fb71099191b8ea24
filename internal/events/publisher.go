package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"company-service/internal/client"
	"company-service/internal/config"
	"company-service/internal/util"
)

// Event types emitted on the company lifecycle topic.
const (
	TypeCompanyRegistered = "company.registered"
	TypeProfileCompleted  = "company.profile_completed"
	TypeCompanyApproved   = "company.approved"
	TypeCompanyRejected   = "company.rejected"
	TypeCompanyBlocked    = "company.blocked"
	TypeCompanyUnblocked  = "company.unblocked"
)

type Event struct {
	Type      string            `json:"type"`
	CompanyID string            `json:"company_id"`
	Email     string            `json:"email,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Publisher emits company lifecycle events for downstream consumers
// (job service, notifications, analytics). Publishing is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type kafkaPublisher struct {
	producer *client.KafkaProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaPublisher(producer *client.KafkaProducer, cfg *config.Config, logger *zap.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    cfg.Kafka.EventsTopic,
		logger:   logger,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Keyed by company so per-company ordering is preserved
	err = p.producer.ProduceMessage(ctx, p.topic, []byte(event.CompanyID), value, map[string]string{
		"event_type": event.Type,
	})
	if err != nil {
		util.Error("Failed to publish company event",
			zap.String("event_type", event.Type),
			zap.String("company_id", event.CompanyID),
			zap.Error(err))
		return fmt.Errorf("failed to publish company event: %w", err)
	}

	util.Debug("Company event published",
		zap.String("event_type", event.Type),
		zap.String("company_id", event.CompanyID))

	return nil
}

type nopPublisher struct{}

// NewNopPublisher returns a publisher that drops events, used when the
// broker is unavailable in development.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(ctx context.Context, event Event) error {
	util.Debug("Event dropped, no broker configured",
		zap.String("event_type", event.Type),
		zap.String("company_id", event.CompanyID))
	return nil
}
