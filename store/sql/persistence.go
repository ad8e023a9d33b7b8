package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// PersistenceConfig is the connection surface for the webhook tables. It
// satisfies the go-persistence-bun config contract; Server carries the DSN.
type PersistenceConfig struct {
	Driver         string
	Server         string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c PersistenceConfig) GetDebug() bool {
	return c.Debug
}

func (c PersistenceConfig) GetDriver() string {
	return strings.TrimSpace(c.Driver)
}

func (c PersistenceConfig) GetServer() string {
	return strings.TrimSpace(c.Server)
}

func (c PersistenceConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

func (c PersistenceConfig) GetOtelIdentifier() string {
	if strings.TrimSpace(c.OtelIdentifier) == "" {
		return "go-webhooks"
	}
	return c.OtelIdentifier
}

// OpenClient opens the database named by cfg and attaches a persistence
// client around it. Postgres is the production path; sqlite3 serves
// embedded and test deployments.
func OpenClient(cfg PersistenceConfig) (*persistence.Client, error) {
	driver := cfg.GetDriver()
	if driver == "" {
		return nil, fmt.Errorf("sqlstore: persistence driver is required")
	}
	if cfg.GetServer() == "" {
		return nil, fmt.Errorf("sqlstore: persistence server dsn is required")
	}

	var dialect schema.Dialect
	switch driver {
	case DriverPostgres:
		dialect = pgdialect.New()
	case DriverSQLite, "sqlite":
		driver = DriverSQLite
		cfg.Driver = DriverSQLite
		dialect = sqlitedialect.New()
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s database: %w", driver, err)
	}

	client, err := persistence.New(cfg, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: attach persistence client: %w", err)
	}
	return client, nil
}
