package kafka

import (
	"context"

	"github.com/iwtcode/railmon/internal/config"
	"github.com/iwtcode/railmon/internal/interfaces"

	"github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	readings *kafka.Writer
	alerts   *kafka.Writer
}

// NewKafkaProducer создает продюсер с двумя топиками: показания и тревоги
func NewKafkaProducer(cfg *config.AppConfig) (interfaces.KafkaService, error) {
	readings := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBroker),
		Topic:    cfg.KafkaTopic,
		Balancer: &kafka.LeastBytes{},
	}
	alerts := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBroker),
		Topic:    cfg.KafkaAlerts,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaProducer{readings: readings, alerts: alerts}, nil
}

// Produce отправляет показание датчика в Kafka
func (p *KafkaProducer) Produce(ctx context.Context, key, value []byte) error {
	return p.readings.WriteMessages(ctx,
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// ProduceAlert отправляет событие тревоги в Kafka
func (p *KafkaProducer) ProduceAlert(ctx context.Context, key, value []byte) error {
	return p.alerts.WriteMessages(ctx,
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// Close закрывает соединения с Kafka
func (p *KafkaProducer) Close() error {
	if err := p.readings.Close(); err != nil {
		_ = p.alerts.Close()
		return err
	}
	return p.alerts.Close()
}
