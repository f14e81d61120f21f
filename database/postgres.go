package database

import (
	"context"
	"fmt"
	"time"

	"storybook-order-service/models"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConfig holds the connection settings read by LoadConfig.
type PostgresConfig struct {
	User     string
	Password string
	DB       string
	Host     string
	Port     string
	SSLMode  string
	TimeZone string
}

func (c PostgresConfig) DSN() string {
	host, port, sslMode, tz := c.Host, c.Port, c.SSLMode, c.TimeZone
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "5432"
	}
	if sslMode == "" {
		sslMode = "disable"
	}
	if tz == "" {
		tz = "UTC"
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		host, c.User, c.Password, c.DB, port, sslMode, tz,
	)
}

// Models lists every table owned by the order engine.
func Models() []any {
	return []any{
		&models.Order{},
		&models.OrderItem{},
		&models.StatusHistory{},
		&models.Payment{},
		&models.Refund{},
		&models.Discount{},
		&models.PageComment{},
		&models.CommentReply{},
	}
}

// ConnectPostgres opens the pool with linear backoff and migrates the schema.
func ConnectPostgres(cfg PostgresConfig, logger *zap.Logger) (*gorm.DB, error) {
	if cfg.User == "" || cfg.Password == "" || cfg.DB == "" {
		return nil, fmt.Errorf("postgres credentials incomplete")
	}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}
			logger.Info("Connected to PostgreSQL", zap.String("host", cfg.Host), zap.String("db", cfg.DB))

			if err := db.AutoMigrate(Models()...); err != nil {
				return nil, fmt.Errorf("AutoMigrate failed: %w", err)
			}
			return db, nil
		}

		logger.Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
}

// Ping is used by the health endpoint.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
