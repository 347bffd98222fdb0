package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"courseledger/internal/modules/reconcile"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaNotifier publishes payment confirmations for the downstream
// email/CRM consumers. Delivery is best effort; the reconciler swallows
// any error it returns.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) (*KafkaNotifier, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("Kafka notifier initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &KafkaNotifier{producer: producer, topic: topic, logger: logger}, nil
}

func (n *KafkaNotifier) NotifyPaymentConfirmed(ctx context.Context, c reconcile.Confirmation) error {
	value, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(c.Email),
		Value: sarama.ByteEncoder(value),
	}

	partition, offset, err := n.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}

	n.logger.Info("payment confirmation published",
		zap.String("email", c.Email),
		zap.String("gateway_payment_id", c.GatewayPaymentID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}
