package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/medqueue/clinic-queue-scheduler/internal/adapters/in/http"
	"github.com/medqueue/clinic-queue-scheduler/internal/adapters/in/rabbitmq"
	"github.com/medqueue/clinic-queue-scheduler/internal/adapters/out/broadcast"
	"github.com/medqueue/clinic-queue-scheduler/internal/adapters/out/logger"
	"github.com/medqueue/clinic-queue-scheduler/internal/adapters/out/medstore"
	"github.com/medqueue/clinic-queue-scheduler/internal/adapters/out/notifier"
	"github.com/medqueue/clinic-queue-scheduler/internal/adapters/out/sessioncache"
	"github.com/medqueue/clinic-queue-scheduler/internal/config"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/ports/out"
	"github.com/medqueue/clinic-queue-scheduler/internal/core/services/queue_scheduler_service"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера с таймзоной клиники
	mainLogger, err := logger.NewConsoleLogger(cfg.App.Timezone, cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := mainLogger.WithModule("Main")

	log.Info("app.starting", out.LogFields{
		"version":         cfg.App.Version,
		"env":             cfg.App.Env,
		"timezone":        cfg.App.Timezone,
		"rabbitmqEnabled": cfg.RabbitMq.Enabled,
		"notifierEnabled": cfg.Notifier.Enabled,
	})

	// Настройка Gin в зависимости от окружения
	if cfg.IsNotLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Инициализация out-адаптеров
	storeAdapter := medstore.NewMedStoreAdapter(cfg, mainLogger.WithModule("MedStoreAdapter"))

	sessionAdapter, err := sessioncache.NewSessionCacheAdapter(cfg, mainLogger.WithModule("SessionCacheAdapter"))
	if err != nil {
		log.Error("app.sessioncache.init_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	var broadcastPort out.BroadcastPort
	broadcaster, err := broadcast.NewAmqpBroadcaster(cfg, mainLogger.WithModule("AmqpBroadcaster"))
	if err != nil {
		log.Error("app.rabbitmq.init_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	if broadcaster != nil {
		broadcastPort = broadcaster
		defer func() {
			if err := broadcaster.Stop(); err != nil {
				log.Error("app.rabbitmq.stop_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
	}

	var notifierPort out.NotifierPort
	if httpNotifier := notifier.NewHttpNotifier(cfg, mainLogger.WithModule("HttpNotifier")); httpNotifier != nil {
		notifierPort = httpNotifier
	}

	// Инициализация сервиса
	queueSchedulerService := queue_scheduler_service.NewQueueSchedulerService(
		storeAdapter,
		sessionAdapter,
		broadcastPort,
		notifierPort,
		cfg,
		mainLogger,
	)

	// Настройка HTTP сервера
	router := gin.Default()
	controller := http.NewQueueSchedulerController(
		queueSchedulerService,
		cfg,
		mainLogger.WithModule("HttpController"),
	)
	controller.RegisterRoutes(router)

	// Настройка RabbitMQ слушателя только если он включен
	if cfg.RabbitMq.Enabled {
		listener, err := rabbitmq.NewAppointmentEventListener(
			queueSchedulerService,
			cfg,
			mainLogger,
		)
		if err != nil {
			log.Error("app.rabbitmq.listener.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		if err := listener.Start(ctx); err != nil {
			log.Error("app.rabbitmq.listener.start_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		defer func() {
			if err := listener.Stop(); err != nil {
				log.Error("app.rabbitmq.listener.stop_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("app.http.starting", out.LogFields{
			"host": cfg.HTTP.Host,
			"port": cfg.HTTP.Port,
		})

		if err := router.Run(cfg.HTTP.Host + ":" + cfg.HTTP.Port); err != nil {
			log.Error("app.http.failed", out.LogFields{
				"error": err.Error(),
			})
			sigChan <- syscall.SIGTERM
		}
	}()

	sig := <-sigChan
	log.Info("app.shutdown.initiated", out.LogFields{
		"signal": sig.String(),
	})

	// Дополнительное логирование для разработки
	if cfg.IsLocal() {
		log.Debug("app.config.debug", out.LogFields{
			"config": map[string]interface{}{
				"http": map[string]string{
					"host": cfg.HTTP.Host,
					"port": cfg.HTTP.Port,
				},
				"medstore": map[string]string{
					"url":      cfg.MedStore.URL,
					"username": cfg.MedStore.Username,
				},
				"rabbitmq": map[string]interface{}{
					"enabled":  cfg.RabbitMq.Enabled,
					"exchange": cfg.RabbitMq.Exchange,
					"queue":    cfg.RabbitMq.AppointmentQueueName,
				},
				"queue": map[string]int{
					"slotMinutes":           cfg.Queue.SlotMinutes,
					"avgAppointmentMinutes": cfg.Queue.AvgAppointmentMinutes,
					"notifyAhead":           cfg.Queue.NotifyAhead,
				},
			},
		})
	}
}
