package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
)

// HttpNotifier отправляет уведомления через внешний шлюз доставки.
// Канал (email или SMS) выбирает сам шлюз по формату контакта.
type HttpNotifier struct {
	client *http.Client
	url    string
	token  string
	logger out.LoggerPort
}

func NewHttpNotifier(cfg *config.Config, logger out.LoggerPort) *HttpNotifier {
	if !cfg.Notifier.Enabled {
		logger.Info("notifier.disabled", out.LogFields{
			"message": "Notifier is disabled, notifications will not be sent",
		})
		return nil
	}

	return &HttpNotifier{
		client: &http.Client{Timeout: 5 * time.Second},
		url:    cfg.Notifier.URL,
		token:  cfg.Notifier.Token,
		logger: logger,
	}
}

type sendRequest struct {
	Contact  string               `json:"contact"`
	Template string               `json:"template"`
	Data     out.NotificationData `json:"data"`
}

func (n *HttpNotifier) Send(ctx context.Context, contact string, data out.NotificationData) error {
	body, err := json.Marshal(sendRequest{
		Contact:  contact,
		Template: "queue-almost-up",
		Data:     data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url+"/send", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.token)

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notifier.send.failed", out.LogFields{
			"error": err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		n.logger.Warn("notifier.send.failed", out.LogFields{
			"status": resp.StatusCode,
		})
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	n.logger.Debug("notifier.send.success", out.LogFields{
		"queueNumber": data.QueueNumber,
	})

	return nil
}
