package rabbitmq

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/domain"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/in"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AppointmentEventListener принимает команды по записям из внешних
// систем клиники (регистратура, кабинет врача) через topic-exchange.
// Ключ маршрутизации: clinic.queue-scheduler.appointment.<action>
type AppointmentEventListener struct {
	useCase   in.QueueSchedulerUseCase
	cfg       *config.Config
	logger    out.LoggerPort
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

type appointmentEventMessage struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	Reason        string    `json:"reason"`
	Actor         string    `json:"actor"`
}

func NewAppointmentEventListener(useCase in.QueueSchedulerUseCase, cfg *config.Config, logger out.LoggerPort) (*AppointmentEventListener, error) {
	if !cfg.RabbitMq.Enabled {
		logger.Info("rabbitmq.disabled", out.LogFields{
			"message": "RabbitMQ is disabled, appointment event listener will not be started",
		})
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMq.AmqpUri)
	if err != nil {
		logger.Error("rabbitmq.connect.failed", out.LogFields{
			"error": err.Error(),
		})
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
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
		return nil, err
	}

	queue, err := channel.QueueDeclare(
		cfg.RabbitMq.AppointmentQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	err = channel.QueueBind(
		queue.Name,
		cfg.RabbitMq.AppointmentQueueBind,
		cfg.RabbitMq.Exchange,
		false,
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &AppointmentEventListener{
		useCase:   useCase,
		cfg:       cfg,
		logger:    logger.WithModule("AppointmentEventListener"),
		conn:      conn,
		channel:   channel,
		queueName: queue.Name,
	}, nil
}

func (l *AppointmentEventListener) Start(ctx context.Context) error {
	messages, err := l.channel.Consume(
		l.queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-messages:
				if !ok {
					l.logger.Warn("rabbitmq.consume.channel_closed", nil)
					return
				}
				l.handleDelivery(ctx, delivery)
			}
		}
	}()

	l.logger.Info("rabbitmq.consume.started", out.LogFields{
		"queue": l.queueName,
	})

	return nil
}

func (l *AppointmentEventListener) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	// clinic.queue-scheduler.appointment.<action>
	keyParts := strings.Split(delivery.RoutingKey, ".")
	if len(keyParts) != 4 {
		l.logger.Warn("rabbitmq.consume.bad_routing_key", out.LogFields{
			"routingKey": delivery.RoutingKey,
		})
		delivery.Nack(false, false)
		return
	}
	action := keyParts[3]

	var message appointmentEventMessage
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		l.logger.Warn("rabbitmq.consume.bad_payload", out.LogFields{
			"routingKey": delivery.RoutingKey,
			"error":      err.Error(),
		})
		delivery.Nack(false, false)
		return
	}

	var err error
	switch action {
	case "started":
		_, err = l.useCase.StartConsultation(ctx, message.AppointmentID)
	case "cancelled":
		_, err = l.useCase.CancelAppointment(ctx, message.AppointmentID, message.Reason, message.Actor)
	default:
		l.logger.Warn("rabbitmq.consume.unknown_action", out.LogFields{
			"action": action,
		})
		delivery.Nack(false, false)
		return
	}

	if err != nil {
		l.logger.Warn("rabbitmq.consume.handle_failed", out.LogFields{
			"action":        action,
			"appointmentId": message.AppointmentID,
			"error":         err.Error(),
		})
		// Перепоставляем только внешние сбои: ошибки валидации
		// и конфликты при повторе не исправятся
		requeue := domain.ErrorKindOf(err) == domain.ErrorKindExternal
		delivery.Nack(false, requeue)
		return
	}

	l.logger.Info("rabbitmq.consume.handled", out.LogFields{
		"action":        action,
		"appointmentId": message.AppointmentID,
	})
	delivery.Ack(false)
}

func (l *AppointmentEventListener) Stop() error {
	if l == nil || l.channel == nil {
		return nil
	}

	if err := l.channel.Close(); err != nil {
		return err
	}
	return l.conn.Close()
}
