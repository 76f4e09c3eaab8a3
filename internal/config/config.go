package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type Environment string

const (
	EnvLocal      Environment = "local"
	EnvDev        Environment = "dev"
	EnvStage      Environment = "stage"
	EnvProduction Environment = "production"
)

// TimeZone — таймзона клиники, заполняется в NewConfig
var TimeZone *time.Location = time.UTC

type ConfigBasicClient struct {
	Username string
	Password string
}

type Config struct {
	App struct {
		Version  string      `env:"APP_VERSION" envDefault:"local"`
		Env      Environment `env:"APP_ENV" envDefault:"local"`
		Timezone string      `env:"APP_TIMEZONE" envDefault:"Europe/Moscow"`
		LogLevel string      `env:"APP_LOG_LEVEL" envDefault:"info"`
	}

	HTTP struct {
		Port string `env:"HTTP_SERVER_PORT" envDefault:"8080"`
		Host string `env:"HTTP_SERVER_HOST" envDefault:"localhost"`
	}

	// Внешнее хранилище медицинских записей (REST CRUD)
	MedStore struct {
		URL      string `env:"MEDSTORE_URL"`
		Username string `env:"MEDSTORE_USERNAME"`
		Password string `env:"MEDSTORE_PASSWORD"`
	}

	// Шлюз доставки уведомлений (email/SMS)
	Notifier struct {
		Enabled bool   `env:"NOTIFIER_ENABLED" envDefault:"true"`
		URL     string `env:"NOTIFIER_URL"`
		Token   string `env:"NOTIFIER_TOKEN"`
	}

	Auth struct {
		BasicClientsString string `env:"AUTH_BASIC_CLIENTS" envDefault:"queue_scheduler:queue_scheduler"`
		BasicClients       []ConfigBasicClient
	}

	RabbitMq struct {
		Enabled              bool   `env:"RABBITMQ_ENABLED"`
		AmqpUri              string `env:"RABBITMQ_URL"`
		Exchange             string `env:"RABBITMQ_EXCHANGE" envDefault:"clinic.events"`
		AppointmentQueueName string `env:"RABBITMQ_APPOINTMENT_QUEUE" envDefault:"queue-scheduler.appointment"`
		AppointmentQueueBind string `env:"RABBITMQ_APPOINTMENT_BIND" envDefault:"clinic.queue-scheduler.appointment.*"`
	}

	// Параметры очереди
	Queue struct {
		SlotMinutes           int `env:"QUEUE_SLOT_MINUTES" envDefault:"30"`
		AvgAppointmentMinutes int `env:"QUEUE_AVG_APPOINTMENT_MINUTES" envDefault:"15"`
		NotifyAhead           int `env:"QUEUE_NOTIFY_AHEAD" envDefault:"2"`
	}

	Cache struct {
		SessionsSize int `env:"CACHE_SESSIONS_SIZE" envDefault:"1000"`
	}
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Приведение окружения к нижнему регистру для унификации
	cfg.App.Env = Environment(strings.ToLower(string(cfg.App.Env)))

	// Загружаем таймзону клиники, при ошибке остаёмся в UTC
	if loc, err := time.LoadLocation(cfg.App.Timezone); err == nil {
		TimeZone = loc
	}

	// Разбор basic-клиентов вида user1:pass1,user2:pass2
	if cfg.Auth.BasicClients == nil {
		cfg.Auth.BasicClients = []ConfigBasicClient{}
	}
	clientPairs := strings.Split(cfg.Auth.BasicClientsString, ",")
	for _, pair := range clientPairs {
		parts := strings.Split(pair, ":")
		if len(parts) == 2 {
			cfg.Auth.BasicClients = append(cfg.Auth.BasicClients, ConfigBasicClient{
				Username: parts[0],
				Password: parts[1],
			})
		}
	}

	return cfg, nil
}

func (c *Config) IsLocal() bool {
	return c.App.Env == EnvLocal
}

func (c *Config) IsNotLocal() bool {
	return c.App.Env == EnvDev || c.App.Env == EnvStage || c.App.Env == EnvProduction
}
