package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/aymshop/storefront/internal/config"
	"github.com/aymshop/storefront/internal/logger"
	"github.com/aymshop/storefront/internal/models"
	"github.com/aymshop/storefront/pkg/util"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const patternHeader = "pattern"

type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	metrics  *prometheus.HistogramVec
	log      *zap.SugaredLogger
}

// NewPublisher creates a sync producer, or a noop publisher when Kafka is disabled.
func NewPublisher(cfg *config.KafkaConfig) (Publisher, error) {
	if !cfg.Enabled {
		return &noopPublisher{log: logger.MustNamed("kafka")}, nil
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("new sync producer: %w", err)
	}
	return newPublisher(producer, cfg.Topic)
}

func producerConfig(cfg *config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 3
	sc.Producer.Idempotent = false
	return sc
}

func newPublisher(producer sarama.SyncProducer, topic string) (*kafkaPublisher, error) {
	metrics, err := util.GetHistogramVec("kafka_messages_published", "status", "topic")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		metrics:  metrics,
		log:      logger.MustNamed("kafka"),
	}, nil
}

func (p *kafkaPublisher) PublishOrder(ctx context.Context, event models.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := encodeEvent(p.topic, event)
	if err != nil {
		return err
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.WithLabelValues(status, p.topic).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("send order %s: %w", event.Bill.Serial, err)
	}

	p.log.Infow("order published", "serial", event.Bill.Serial, "partition", partition, "offset", offset)
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// encodeEvent keys messages by session so one shopper's orders stay ordered.
func encodeEvent(topic string, event models.OrderEvent) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.SessionID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte(patternHeader), Value: []byte(event.Pattern)},
		},
	}, nil
}

type noopPublisher struct {
	log *zap.SugaredLogger
}

func (p *noopPublisher) PublishOrder(_ context.Context, event models.OrderEvent) error {
	p.log.Debugw("kafka disabled, order not published", "serial", event.Bill.Serial)
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
