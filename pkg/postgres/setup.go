package postgres

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Logger defines the interface for logging operations within the postgres package.
// It provides methods for different logging levels to track database operations,
// connection status, and error handling.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=postgres
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

const (
	healthCheckInterval = 10 * time.Second
	healthCheckTimeout  = 5 * time.Second
	reconnectBackoff    = time.Second
)

// Postgres is a wrapper around gorm.DB that provides connection monitoring,
// automatic reconnection, and a pipeline.ConnectionSource over the pooled
// connections.
//
// The active *gorm.DB is stored in an atomic pointer and can be swapped during
// reconnection without blocking readers. Connections already handed out keep
// using the pool they were taken from.
type Postgres struct {
	cfg             Config
	logger          Logger
	client          atomic.Pointer[gorm.DB]
	shutdownSignal  chan struct{}
	retryChanSignal chan error

	closeRetryChanOnce sync.Once
	closeShutdownOnce  sync.Once
}

// NewPostgres creates a new Postgres instance with the provided configuration and Logger.
// It establishes the initial database connection and sets up the internal state
// for connection monitoring and recovery.
func NewPostgres(cfg Config, logger Logger) (*Postgres, error) {
	conn, err := connectToPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("error in connecting to postgres: %w", err)
	}
	logger.Info("Successfully connected to PostgresSQL database", nil, map[string]interface{}{
		"host":     cfg.Connection.Host,
		"database": cfg.Connection.DbName,
	})

	pg := &Postgres{
		cfg:             cfg,
		logger:          logger,
		shutdownSignal:  make(chan struct{}),
		retryChanSignal: make(chan error, 1),
	}
	pg.client.Store(conn)
	return pg, nil
}

// connectToPostgres opens the database with GORM and configures the connection pool
func connectToPostgres(cfg Config) (*gorm.DB, error) {
	database, err := gorm.Open(
		postgres.Open(cfg.Connection.DSN()),
		&gorm.Config{
			TranslateError: true,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgresSQL database: %w", err)
	}

	databaseInstance, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgresSQL database instance: %w", err)
	}

	details := cfg.ConnectionDetails.withDefaults()
	databaseInstance.SetMaxOpenConns(details.MaxOpenConns)
	databaseInstance.SetMaxIdleConns(details.MaxIdleConns)
	databaseInstance.SetConnMaxLifetime(details.ConnMaxLifetime)

	return database, nil
}

// RetryConnection continuously attempts to reconnect to the PostgresSQL database when notified
// of a connection failure. It operates as a goroutine that waits for signals on retryChanSignal
// before attempting reconnection. The function respects context cancellation and shutdown signals.
//
// It implements two nested loops:
// - The outer loop waits for retry signals
// - The inner loop attempts reconnection until successful
func (p *Postgres) RetryConnection(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-p.shutdownSignal:
			p.logger.Info("Stopping RetryConnection loop due to shutdown signal", nil, nil)
			return
		case <-ctx.Done():
			return
		case cause, ok := <-p.retryChanSignal:
			if !ok {
				return
			}
			p.logger.Warn("PostgresSQL health check failed, reconnecting", cause, nil)
		innerLoop:
			for {
				select {
				case <-p.shutdownSignal:
					return
				case <-ctx.Done():
					return
				default:
					newConn, err := connectToPostgres(p.cfg)
					if err != nil {
						p.logger.Error("PostgresSQL reconnection failed", err, nil)
						time.Sleep(reconnectBackoff)
						continue innerLoop
					}
					old := p.client.Load()
					if old == nil || !p.client.CompareAndSwap(old, newConn) {
						// shut down while reconnecting
						closeGorm(newConn)
						return
					}
					closeGorm(old)
					p.logger.Info("Successfully reconnected to PostgresSQL database", nil, nil)
					continue outerLoop
				}
			}
		}
	}
}

// MonitorConnection periodically checks the health of the database connection
// and signals the RetryConnection goroutine when a failure is detected.
func (p *Postgres) MonitorConnection(ctx context.Context) {
	defer p.closeRetryChanOnce.Do(func() {
		close(p.retryChanSignal)
	})

	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.shutdownSignal:
			p.logger.Info("Stopping MonitorConnection loop due to shutdown signal", nil, nil)
			return
		case <-ticker.C:
			if err := p.healthCheck(ctx); err != nil {
				select {
				case p.retryChanSignal <- err:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// healthCheck pings the current connection pool with a five second timeout
func (p *Postgres) healthCheck(ctx context.Context) error {
	dbConn := p.DB()
	if dbConn == nil {
		return fmt.Errorf("database Client is not initialized")
	}

	db, err := dbConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance during health check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

// GracefulShutdown signals the monitoring loops to stop and closes the connection
// pool. It is safe to call more than once.
func (p *Postgres) GracefulShutdown() error {
	p.closeShutdownOnce.Do(func() {
		close(p.shutdownSignal)
	})

	old := p.client.Swap(nil)
	if old == nil {
		return nil
	}
	sqlDB, err := old.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func closeGorm(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
