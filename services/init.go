package services

import (
	"io"

	"github.com/kotsworld/mailsync/config"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/repository"
	"github.com/kotsworld/mailsync/services/attachments"
	"github.com/kotsworld/mailsync/services/cursor"
	"github.com/kotsworld/mailsync/services/events"
	"github.com/kotsworld/mailsync/services/imap"
	"github.com/kotsworld/mailsync/services/ingestion"
	"github.com/kotsworld/mailsync/services/runlock"
	"github.com/kotsworld/mailsync/services/storage"
)

type Services struct {
	EventsService    *events.EventsService
	StorageService   *storage.ObjectStorageService
	RunLock          interfaces.RunLock
	IngestionService *ingestion.IngestionService
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	// events
	eventsService, err := events.NewEventsService(cfg, log, nil)
	if err != nil {
		return nil, err
	}

	location, err := cursor.LoadLocation(cfg.AppConfig.SyncTimezone)
	if err != nil {
		return nil, err
	}

	lock, err := runlock.New(cfg.AppConfig.RedisURL, log)
	if err != nil {
		return nil, err
	}

	storageService := storage.NewS3StorageService(cfg.S3StorageConfig)
	var uploader *attachments.Uploader
	if cfg.S3StorageConfig.Bucket == "" {
		log.Warn("AWS_S3_BUCKET not set, PDF attachments will not be stored")
	} else {
		uploader = attachments.NewUploader(storageService, log)
	}

	mailboxConfig := imap.Config{
		Host:        cfg.MailboxConfig.Host,
		Port:        cfg.MailboxConfig.Port,
		Username:    cfg.MailboxConfig.User,
		Password:    cfg.MailboxConfig.Password,
		TLS:         cfg.MailboxConfig.TLS,
		DialTimeout: cfg.MailboxConfig.DialTimeout,
	}

	deps := &ingestion.Dependencies{
		NewMailbox: func() interfaces.MailboxClient {
			return imap.NewClient(mailboxConfig, log)
		},
		Folders:   cfg.MailboxConfig.Folders,
		Documents: repos.ContractDocumentRepository,
		Tickets:   repos.ServiceTicketRepository,
		Cursor:    cursor.NewSyncCursor(repos.SyncCursorRepository, log, location),
		Uploader:  uploader,
		Notifier:  eventsService.Notifier,
		Log:       log,
	}

	return &Services{
		EventsService:    eventsService,
		StorageService:   storageService,
		RunLock:          lock,
		IngestionService: ingestion.NewIngestionService(deps, lock),
	}, nil
}

// Close flushes pending notifications and releases broker and lock connections.
func (s *Services) Close() error {
	var err error
	if s.EventsService != nil {
		err = s.EventsService.Close()
	}
	if closer, ok := s.RunLock.(io.Closer); ok {
		if closeErr := closer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
