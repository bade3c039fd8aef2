package database

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/config"
)

func InitDatabase(dbConfig *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := NewConnection(dbConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to the database")
	}

	return db, nil
}
