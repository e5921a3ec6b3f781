package configs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// =======================
// CONFIG STRUCTS
// =======================

type ServerConfig struct {
	Port         string        `env:"PORT" envDefault:"3000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"90s"`

	// per-request context deadline; must outlive ABSENT_RECONCILE_TIMEOUT
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"45s"`
	CorsOrigins    string        `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173,http://127.0.0.1:5500"`

	// requests per minute per client IP
	RateLimit       int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
	IngestRateLimit int `env:"INGEST_RATE_LIMIT_PER_MINUTE" envDefault:"1200"`
}

type DatabaseConfig struct {
	User               string        `env:"DB_USER"`
	Password           string        `env:"DB_PASSWORD"`
	Host               string        `env:"DB_HOST" envDefault:"localhost"`
	Port               string        `env:"DB_PORT" envDefault:"5432"`
	Name               string        `env:"DB_NAME" envDefault:"smart_attendance"`
	SSLMode            string        `env:"DB_SSLMODE" envDefault:"require"`
	StatementTimeoutMS int           `env:"DB_STATEMENT_TIMEOUT_MS" envDefault:"3000"`
	MaxOpenConns       int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns       int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	SlowQuery          time.Duration `env:"DB_SLOW_QUERY" envDefault:"200ms"`
}

// EngineConfig holds the attendance rules. Defaults match the campus policy:
// 0.60 recognition threshold, 12h reopen window, 5 minute fresh window.
type EngineConfig struct {
	ConfidenceThreshold float64       `env:"RECOGNITION_CONFIDENCE_THRESHOLD" envDefault:"0.60"`
	ReopenWindow        time.Duration `env:"SESSION_REOPEN_WINDOW" envDefault:"12h"`
	FreshWindow         time.Duration `env:"ATTENDANCE_FRESH_WINDOW" envDefault:"5m"`
	Timezone            string        `env:"CAMPUS_TIMEZONE" envDefault:"Africa/Addis_Ababa"`
	ReconcileTimeout    time.Duration `env:"ABSENT_RECONCILE_TIMEOUT" envDefault:"30s"`
	AbsentBatchSize     int           `env:"ABSENT_BATCH_SIZE" envDefault:"200"`
	IngestMaxParallel   int           `env:"INGEST_MAX_PARALLEL" envDefault:"4"`

	location *time.Location
}

// Location is the campus zone used to compute attendance dates.
func (c EngineConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// WithLocation returns a copy bound to loc.
func (c EngineConfig) WithLocation(loc *time.Location) EngineConfig {
	c.location = loc
	return c
}

type SeedConfig struct {
	Run        bool   `env:"RUN_SEEDS" envDefault:"false"`
	RosterPath string `env:"SEED_ROSTER_PATH" envDefault:"internals/seeds/roster/data_roster.json"`
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
	Seed     SeedConfig
}

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ .env file not found, using system ENV")
		} else {
			log.Println("✅ .env file loaded")
		}
	} else {
		log.Println("🚀 Running in Railway, using system ENV")
	}
}

// Load parses the process environment into Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Engine.validate(); err != nil {
		return Config{}, err
	}
	cfg.Engine.location = LoadLocation(cfg.Engine.Timezone)

	if cfg.Database.User == "" {
		log.Println("❌ DB_USER is not set!")
	}
	return cfg, nil
}

func (c *EngineConfig) validate() error {
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("RECOGNITION_CONFIDENCE_THRESHOLD must be in (0,1], got %v", c.ConfidenceThreshold)
	}
	if c.ReopenWindow <= 0 {
		return errors.New("SESSION_REOPEN_WINDOW must be positive")
	}
	if c.FreshWindow <= 0 {
		return errors.New("ATTENDANCE_FRESH_WINDOW must be positive")
	}
	if c.ReconcileTimeout <= 0 {
		return errors.New("ABSENT_RECONCILE_TIMEOUT must be positive")
	}
	if c.AbsentBatchSize <= 0 {
		c.AbsentBatchSize = 200
	}
	if c.IngestMaxParallel <= 0 {
		c.IngestMaxParallel = 1
	}
	return nil
}

// DefaultEngineConfig is the policy used when nothing is configured (tests, tools).
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		ConfidenceThreshold: 0.60,
		ReopenWindow:        12 * time.Hour,
		FreshWindow:         5 * time.Minute,
		Timezone:            "UTC",
		ReconcileTimeout:    30 * time.Second,
		AbsentBatchSize:     200,
		IngestMaxParallel:   4,
		location:            time.UTC,
	}
}

// LoadLocation falls back to UTC when the zone database is missing the name.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("⚠️ timezone %q not available, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger(slow time.Duration) gormLogger.Interface {
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return &GormLogger{
		SlowThreshold: slow,
		LogLevel:      gormLogger.Warn,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	cp := *l
	cp.LogLevel = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Info {
		log.Printf("[INFO] "+msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Warn {
		log.Printf("[WARN] "+msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= gormLogger.Error {
		log.Printf("[ERROR] "+msg, data...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	switch {
	case err != nil && l.LogLevel >= gormLogger.Error:
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	case elapsed > l.SlowThreshold && l.LogLevel >= gormLogger.Warn:
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	case l.LogLevel >= gormLogger.Info:
		log.Printf("[QUERY] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
