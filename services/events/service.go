package events

import (
	"fmt"

	"github.com/kotsworld/mailsync/config"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/logger"
)

type EventsService struct {
	Publisher interfaces.NotificationPublisher
	Notifier  *BackgroundNotifier
}

// NewEventsService connects to RabbitMQ when a URL is configured and falls back to logging otherwise.
func NewEventsService(cfg *config.Config, log logger.Logger, publisherConfig *PublisherConfig) (*EventsService, error) {
	var publisher interfaces.NotificationPublisher
	if cfg.AppConfig.RabbitMQURL == "" {
		log.Warn("RABBITMQ_URL not set, notifications will only be logged")
		publisher = NewLogPublisher(log)
	} else {
		if publisherConfig == nil {
			publisherConfig = DefaultPublisherConfig()
			publisherConfig.PublishTimeout = cfg.NotificationConfig.PublishTimeout
		}
		rabbitmqPublisher, err := NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, publisherConfig)
		if err != nil {
			return nil, err
		}
		publisher = rabbitmqPublisher
	}

	notifier := NewBackgroundNotifier(publisher, log, NotifierConfig{
		QueueSize:      cfg.NotificationConfig.QueueSize,
		PublishTimeout: cfg.NotificationConfig.PublishTimeout,
		DrainTimeout:   cfg.NotificationConfig.DrainTimeout,
	})

	return &EventsService{
		Publisher: publisher,
		Notifier:  notifier,
	}, nil
}

func (s *EventsService) Close() error {
	var errs []error

	if s.Notifier != nil {
		s.Notifier.Close()
	}

	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing events service: %v", errs)
	}

	return nil
}
