package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	// import sqlite3 and postgres drivers
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/thrasher-corp/goose"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/log"
)

// Validate checks the driver and that a database is named
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w database config", common.ErrNilPointer)
	}
	switch c.Driver {
	case DBSQLite, DBSQLite3, DBPostgreSQL:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
	if c.Database == "" {
		return ErrNoDatabaseProvided
	}
	return nil
}

// Connect opens a connection for the configured driver
func Connect(cfg *Config, logger *log.Logger) (*Instance, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Nop()
	}
	i := &Instance{config: *cfg, logger: logger}
	switch cfg.Driver {
	case DBPostgreSQL:
		db, err := sql.Open(DBPostgreSQL, cfg.dsn())
		if err != nil {
			return nil, err
		}
		if err := i.SetPostgresConnection(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	default:
		db, err := sql.Open(DBSQLite3, cfg.Database)
		if err != nil {
			return nil, err
		}
		i.SetSQLiteConnection(db)
	}
	if cfg.Verbose {
		logger.Debugf(log.Database, "connected to %s %s", i.dialect, cfg.Database)
	}
	return i, nil
}

func (c *Config) dsn() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Password,
		c.Database,
		sslMode)
}

// SetSQLiteConnection sets the instance's connection to use SQLite. SQLite
// allows a single writer so the pool is limited to one connection
func (i *Instance) SetSQLiteConnection(con *sql.DB) {
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(1)
	i.dialect = DBSQLite3
}

// SetPostgresConnection sets the instance's connection to use Postgres
func (i *Instance) SetPostgresConnection(con *sql.DB) error {
	if err := con.Ping(); err != nil {
		return err
	}
	i.m.Lock()
	defer i.m.Unlock()
	i.SQL = con
	i.SQL.SetMaxOpenConns(2)
	i.SQL.SetMaxIdleConns(1)
	i.SQL.SetConnMaxLifetime(time.Hour)
	i.dialect = DBPostgreSQL
	return nil
}

// Dialect returns the goose dialect of the connection
func (i *Instance) Dialect() string {
	i.m.RLock()
	defer i.m.RUnlock()
	return i.dialect
}

// Rebind converts ? placeholders to the connection's bind style
func (i *Instance) Rebind(query string) string {
	if i.Dialect() != DBPostgreSQL {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			sb.WriteRune(r)
			continue
		}
		n++
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(n))
	}
	return sb.String()
}

// DB returns the connection or an error when closed
func (i *Instance) DB() (*sql.DB, error) {
	if i == nil {
		return nil, errNilInstance
	}
	i.m.RLock()
	defer i.m.RUnlock()
	if i.SQL == nil {
		return nil, errNotConnected
	}
	return i.SQL, nil
}

// Ping checks the connection is alive
func (i *Instance) Ping(ctx context.Context) error {
	db, err := i.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// goose keeps the dialect in package state
var migrateMu sync.Mutex

// Migrate runs a goose command such as up, down, status or reset against
// the migrations in dir
func (i *Instance) Migrate(command, dir string, args ...string) error {
	db, err := i.DB()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = MigrationDir
	}
	i.logger.Infof(log.Database, "running migration %s on %s from %s", command, i.Dialect(), dir)
	migrateMu.Lock()
	defer migrateMu.Unlock()
	return goose.Run(command, db, i.Dialect(), dir, args...)
}

// CloseConnection disconnects the instance
func (i *Instance) CloseConnection() error {
	if i == nil {
		return errNilInstance
	}
	i.m.Lock()
	defer i.m.Unlock()
	if i.SQL == nil {
		return nil
	}
	err := i.SQL.Close()
	i.SQL = nil
	return err
}
