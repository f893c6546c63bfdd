package repository

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/user/cinefam/internal/model"
)

// InitDB opens the Postgres connection, ensures the pgvector extension
// exists and migrates the schema.
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return nil, fmt.Errorf("enable pgvector extension: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Movie{},
		&model.MovieProvider{},
		&model.HouseholdPrefs{},
		&model.HouseholdTaste{},
		&model.Watch{},
		&model.Rating{},
		&model.QueueItem{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// Repositories bundles all repositories over one connection.
type Repositories struct {
	DB       *gorm.DB
	Movie    *MovieRepository
	Provider *ProviderRepository
	Prefs    *PrefsRepository
	Watch    *WatchRepository
	Rating   *RatingRepository
	Queue    *QueueRepository
	Taste    *TasteRepository
}

// NewRepositories creates the repository bundle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:       db,
		Movie:    NewMovieRepository(db),
		Provider: NewProviderRepository(db),
		Prefs:    NewPrefsRepository(db),
		Watch:    NewWatchRepository(db),
		Rating:   NewRatingRepository(db),
		Queue:    NewQueueRepository(db),
		Taste:    NewTasteRepository(db),
	}
}
