package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"phototimeline/domain/models"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func NewDatabase(config DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		config.Host, config.User, config.Password, config.DBName, config.Port, config.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	// PostGIS backs the Point/LineString columns on photos and meetings.
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
		return fmt.Errorf("failed to enable postgis extension: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Group{},
		&models.Meeting{},
		&models.Photo{},
	); err != nil {
		return fmt.Errorf("failed to run auto migrations: %v", err)
	}

	if err := runPhotoTimelineMigrations(db); err != nil {
		return fmt.Errorf("failed to run photo timeline migrations: %v", err)
	}

	return nil
}

// runPhotoTimelineMigrations handles constraints AutoMigrate cannot
// express, namely the composite uniqueness of (group_id, content_hash)
// that backs the duplicate-content short-circuit (spec.md §4.3).
func runPhotoTimelineMigrations(db *gorm.DB) error {
	migrations := []string{
		// DROP first: a previous AutoMigrate run could have already
		// created a single-column index under this same name (from a
		// single-field uniqueIndex tag), which would make the CREATE
		// below's IF NOT EXISTS a silent no-op that leaves the wrong
		// constraint in place.
		`DROP INDEX IF EXISTS idx_photos_group_hash`,
		`CREATE UNIQUE INDEX idx_photos_group_hash ON photos(group_id, content_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_photos_group_shot ON photos(group_id, shot_at)`,
		`CREATE INDEX IF NOT EXISTS idx_meetings_group_start ON meetings(group_id, start_time)`,
		`DO $$ BEGIN
			ALTER TABLE photos ADD CONSTRAINT fk_photos_meeting
				FOREIGN KEY (meeting_id) REFERENCES meetings(id);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	}

	for _, sql := range migrations {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("migration failed: %s, error: %v", sql[:50], err)
		}
	}

	return nil
}
