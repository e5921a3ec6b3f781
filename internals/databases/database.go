package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"smart_attendance_backend/internals/configs"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectDB opens the Postgres handle. The caller owns it and closes it with Close.
func ConnectDB(cfg configs.DatabaseConfig) (*gorm.DB, error) {
	log.Println("🔌 Connecting to PostgreSQL...")

	// statement_timeout keeps a stuck reconciliation from holding row locks forever.
	// With PgBouncer (transaction pooling) keep PreferSimpleProtocol=true.
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=smart_attendance&options=-c%%20statement_timeout=%d",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
		cfg.StatementTimeoutMS,
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         configs.NewGormLogger(cfg.SlowQuery),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	log.Println("✅ DB connected.")
	return db, nil
}

func TunePool(db *gorm.DB, cfg configs.DatabaseConfig) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("pool tune err: %v", err)
		return
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

func WarmUpQueries(db *gorm.DB) {
	go func() {
		time.Sleep(500 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := Ping(ctx, db); err != nil {
			log.Printf("warm-up ping err: %v", err)
			return
		}
		// the ingest path always resolves the session first
		db.WithContext(ctx).Exec("SELECT 1 FROM attendance_sessions LIMIT 1")
	}()
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
