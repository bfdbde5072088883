// Package events publishes employee change notifications to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/lee-tech/hrportal/config"
	"github.com/lee-tech/hrportal/internal/constants"
	coreServer "github.com/lee-tech/hrportal/internal/core/server"
	"go.uber.org/zap"
)

// EmployeeUpserted is the payload of an employee.upserted event.
type EmployeeUpserted struct {
	MessageID    string    `json:"message_id"`
	Event        string    `json:"event"`
	Source       string    `json:"source"`
	EmployeeCode string    `json:"employee_code"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher emits employee change events.
type Publisher interface {
	PublishEmployeeUpserted(ctx context.Context, messageID uuid.UUID, employeeCode string) error
	Close() error
}

// KafkaPublisher sends events through a synchronous producer.
type KafkaPublisher struct {
	sp     sarama.SyncProducer
	topic  string
	source string
	logger *zap.Logger
	now    func() time.Time
}

// NewProducerConfig returns the producer settings: idempotent, acks from
// every in-sync replica, bounded retries.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_3_2_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 200 * time.Millisecond
	return cfg
}

// NewKafkaPublisher wraps sp. Messages go to topic, tagged with source.
func NewKafkaPublisher(sp sarama.SyncProducer, topic, source string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{sp: sp, topic: topic, source: source, logger: logger.Named("events"), now: time.Now}
}

// PublishEmployeeUpserted sends one event keyed by employee code.
func (p *KafkaPublisher) PublishEmployeeUpserted(ctx context.Context, messageID uuid.UUID, employeeCode string) error {
	if p == nil || p.sp == nil {
		return errors.New("sync producer is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(EmployeeUpserted{
		MessageID:    messageID.String(),
		Event:        "employee.upserted",
		Source:       p.source,
		EmployeeCode: employeeCode,
		OccurredAt:   p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal employee event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(employeeCode),
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-kind"), Value: []byte("employee.upserted")},
			{Key: []byte("message-id"), Value: []byte(messageID.String())},
			{Key: []byte("source"), Value: []byte(p.source)},
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}

	partition, offset, err := p.sp.SendMessage(msg)
	if err != nil {
		p.logger.Error("failed to send kafka message",
			zap.String("topic", p.topic),
			zap.String("key", employeeCode),
			zap.Int("bytes", len(body)),
			zap.Error(err))
		return fmt.Errorf("send kafka message: %w", err)
	}

	p.logger.Debug("kafka message sent",
		zap.String("topic", p.topic),
		zap.String("key", employeeCode),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close shuts the producer down.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.sp == nil {
		return nil
	}
	return p.sp.Close()
}

// NoopPublisher drops events. It is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishEmployeeUpserted(context.Context, uuid.UUID, string) error { return nil }
func (NoopPublisher) Close() error                                                     { return nil }

func init() {
	coreServer.RegisterService(constants.ComponentKey.EventPublisher, func(app *coreServer.HTTPApp) (interface{}, error) {
		cfg, err := coreServer.Resolve[*config.HRConfig](app, constants.ComponentKey.HRConfig)
		if err != nil {
			return nil, err
		}
		if len(cfg.KafkaBrokers) == 0 {
			return NoopPublisher{}, nil
		}

		sp, err := sarama.NewSyncProducer(cfg.KafkaBrokers, NewProducerConfig())
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		publisher := NewKafkaPublisher(sp, cfg.KafkaTopic, cfg.ServiceName, app.Logger)
		app.OnShutdown(func(context.Context) error { return publisher.Close() })
		return publisher, nil
	})
}
