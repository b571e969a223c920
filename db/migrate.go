package db

import (
	"fmt"

	"github.com/quailyquaily/mira/db/models"
	"gorm.io/gorm"
)

func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&models.Entry{},
		&models.Entity{},
		&models.Tag{},
		&models.EntryEntity{},
		&models.EntryTag{},
		&models.Reminder{},
		&models.UserRelease{},
	)
}
