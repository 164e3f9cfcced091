package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/civicworks/civic-api/internal/config"
	"github.com/civicworks/civic-api/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the PostgreSQL pool, retrying transient connection
// failures with exponential backoff until ConnectRetrySeconds elapses.
func NewDatabase(ctx context.Context, cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	attempt := 0

	op := func() error {
		attempt++
		conn, err := open(cfg)
		if err != nil {
			if !isRetryableError(err) {
				return backoff.Permanent(err)
			}
			log.Warn("Database not reachable yet, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		db = conn
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(newConnectBackoff(cfg.ConnectRetryDuration()), ctx)); err != nil {
		return nil, err
	}

	log.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("attempts", attempt),
	)
	return db, nil
}

func newConnectBackoff(maxElapsed time.Duration) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = maxElapsed
	return bo
}

func open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.ConnectionString()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// isRetryableError reports whether a connection error is likely transient,
// such as the server still starting up.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"i/o timeout",
		"no such host",
		"the database system is starting up",
		"too many connections",
		"broken pipe",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// HealthCheck pings the database within the given context
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// HealthStats summarizes the connection pool for the readiness endpoint
type HealthStats struct {
	Status          string `json:"status"`
	LatencyMs       int64  `json:"latencyMs"`
	OpenConnections int    `json:"openConnections"`
	InUse           int    `json:"inUse"`
	Idle            int    `json:"idle"`
	WaitCount       int64  `json:"waitCount"`
	Error           string `json:"error,omitempty"`
}

// HealthCheckWithStats pings the database and reports pool statistics
func HealthCheckWithStats(ctx context.Context, db *gorm.DB) *HealthStats {
	stats := &HealthStats{Status: "healthy"}

	sqlDB, err := db.DB()
	if err != nil {
		stats.Status = "unhealthy"
		stats.Error = err.Error()
		return stats
	}

	start := time.Now()
	if err := sqlDB.PingContext(ctx); err != nil {
		stats.Status = "unhealthy"
		stats.Error = err.Error()
	}
	stats.LatencyMs = time.Since(start).Milliseconds()

	s := sqlDB.Stats()
	stats.OpenConnections = s.OpenConnections
	stats.InUse = s.InUse
	stats.Idle = s.Idle
	stats.WaitCount = s.WaitCount
	return stats
}

// Models lists every persisted entity in dependency order
func Models() []interface{} {
	return []interface{}{
		&domain.Area{},
		&domain.Department{},
		&domain.Profile{},
		&domain.Issue{},
		&domain.IssueVote{},
		&domain.Tender{},
		&domain.Bid{},
		&domain.IssueAssignment{},
		&domain.WorkProgress{},
		&domain.TenderEvaluation{},
	}
}

// AutoMigrate creates the schema from the gorm models. Production databases
// are migrated with goose instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
