package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AmqpBroadcaster публикует события очереди в topic-exchange.
// Доставка не гарантируется: подписчики (табло, веб-клиенты)
// при потере события перечитают состояние по HTTP.
type AmqpBroadcaster struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   out.LoggerPort
}

func NewAmqpBroadcaster(cfg *config.Config, logger out.LoggerPort) (*AmqpBroadcaster, error) {
	if !cfg.RabbitMq.Enabled {
		logger.Info("rabbitmq.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, broadcaster will not be started",
		})
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMq.AmqpUri)
	if err != nil {
		logger.Error("rabbitmq.connect.failed", out.LogFields{
			"error": err.Error(),
			"url":   cfg.RabbitMq.AmqpUri,
		})
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		logger.Error("rabbitmq.channel.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	err = channel.ExchangeDeclare(
		cfg.RabbitMq.Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		logger.Error("rabbitmq.exchange.declare_failed", out.LogFields{
			"exchange": cfg.RabbitMq.Exchange,
			"error":    err.Error(),
		})
		return nil, err
	}

	return &AmqpBroadcaster{
		conn:     conn,
		channel:  channel,
		exchange: cfg.RabbitMq.Exchange,
		logger:   logger,
	}, nil
}

func (b *AmqpBroadcaster) Publish(ctx context.Context, topic string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	// Публикация не должна зависать дольше, чем живёт запрос
	publishCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	err = b.channel.PublishWithContext(publishCtx,
		b.exchange,
		topic,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return err
	}

	b.logger.Debug("rabbitmq.published", out.LogFields{
		"topic": topic,
		"bytes": len(body),
	})

	return nil
}

func (b *AmqpBroadcaster) Stop() error {
	if b == nil || b.channel == nil {
		return nil
	}

	if err := b.channel.Close(); err != nil {
		return err
	}
	return b.conn.Close()
}
