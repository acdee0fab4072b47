package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"seatchart/pkg/logger"
)

type KafkaConfig struct {
	Brokers          []string
	GroupID          string
	Topic            string
	SessionTimeoutMs int
	HeartbeatMs      int
	RetryBackoffMs   int
	OffsetOldest     bool
	RetryMax         int
	TimeoutMs        int
}

func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		GroupID:          "seatchart-status-sync",
		Topic:            "seat-status",
		SessionTimeoutMs: 30000,
		HeartbeatMs:      3000,
		RetryBackoffMs:   100,
		OffsetOldest:     false,
		RetryMax:         3,
		TimeoutMs:        10000,
	}
}

// KafkaConsumer reads seat-status deltas from a topic and hands them to a Sink.
type KafkaConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *KafkaConfig
	sink          Sink
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewKafkaConsumer(config *KafkaConfig, sink Sink) (*KafkaConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.Return.Errors = true
	// Stale statuses are useless to a live chart; start from the head unless asked otherwise.
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	}
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = time.Second

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	return &KafkaConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		sink:          sink,
	}, nil
}

// Start runs numWorkers consume loops until ctx is cancelled or Stop is called.
func (kc *KafkaConsumer) Start(ctx context.Context, numWorkers int) {
	ctx, kc.cancel = context.WithCancel(ctx)
	if numWorkers <= 0 {
		numWorkers = 1
	}
	logger.GetDefault().Info("Starting seat status consumers", "workers", numWorkers, "topic", kc.config.Topic)

	go kc.handleErrors()
	for i := 0; i < numWorkers; i++ {
		kc.wg.Add(1)
		go func(workerID int) {
			defer kc.wg.Done()
			kc.runWorker(ctx, workerID)
		}(i)
	}
}

func (kc *KafkaConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &consumerGroupHandler{sink: kc.sink, workerID: workerID}
	for {
		if err := kc.consumerGroup.Consume(ctx, []string{kc.config.Topic}, handler); err != nil {
			logger.GetDefault().Error("Seat status consume failed", "worker", workerID, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (kc *KafkaConsumer) handleErrors() {
	for err := range kc.consumerGroup.Errors() {
		logger.GetDefault().Error("Seat status consumer group error", "error", err)
	}
}

// Stop cancels the workers, waits for them and closes the group.
func (kc *KafkaConsumer) Stop() error {
	if kc.cancel != nil {
		kc.cancel()
	}
	kc.wg.Wait()
	if err := kc.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	return nil
}

type consumerGroupHandler struct {
	sink     Sink
	workerID int
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	logger.GetDefault().Debug("Seat status consumer session started", "worker", h.workerID)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	logger.GetDefault().Debug("Seat status consumer session ended", "worker", h.workerID)
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			h.process(session.Context(), message.Value)
			// Malformed deltas are skipped, not retried.
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *consumerGroupHandler) process(ctx context.Context, body []byte) {
	d, err := DecodeDelta(body)
	if err != nil {
		logger.GetDefault().Warn("Dropping seat status message", "worker", h.workerID, "error", err)
		return
	}
	h.sink.ApplyDelta(ctx, d)
}

// KafkaPublisher writes deltas to the seat-status topic, keyed by seat.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(config *KafkaConfig) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return &KafkaPublisher{producer: producer, topic: config.Topic}, nil
}

func newKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (kp *KafkaPublisher) Publish(ctx context.Context, deltas ...Delta) error {
	if len(deltas) == 0 {
		return nil
	}
	messages := make([]*sarama.ProducerMessage, 0, len(deltas))
	for _, d := range deltas {
		if d.At.IsZero() {
			d.At = time.Now().UTC()
		}
		body, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal delta: %w", err)
		}
		messages = append(messages, &sarama.ProducerMessage{
			Topic:     kp.topic,
			Key:       sarama.StringEncoder(d.Key()),
			Value:     sarama.ByteEncoder(body),
			Timestamp: d.At,
		})
	}
	if err := kp.producer.SendMessages(messages); err != nil {
		return fmt.Errorf("failed to send seat status deltas: %w", err)
	}
	logger.GetDefault().DebugContext(ctx, "Seat status deltas published", "topic", kp.topic, "count", len(messages))
	return nil
}

func (kp *KafkaPublisher) Close() error {
	return kp.producer.Close()
}
