package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/config"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/models"
)

type Repositories struct {
	ContractDocumentRepository interfaces.ContractDocumentRepository
	ServiceTicketRepository    interfaces.ServiceTicketRepository
	SyncCursorRepository       interfaces.SyncCursorRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		ContractDocumentRepository: NewContractDocumentRepository(db),
		ServiceTicketRepository:    NewServiceTicketRepository(db),
		SyncCursorRepository:       NewSyncCursorRepository(db),
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ContractDocument{},
		&models.ServiceTicket{},
		&models.Notification{},
		&models.SyncCursor{},
	)
}

func MigrateDB(dbConfig *config.DatabaseConfig, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	err = AutoMigrate(db)

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConn)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConn)
	sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
