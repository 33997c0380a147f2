package database

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/thrasher-corp/tickbacktester/log"
)

// Supported drivers
const (
	DBSQLite     = "sqlite"
	DBSQLite3    = "sqlite3"
	DBPostgreSQL = "postgres"
)

// MigrationDir is the default location of the goose migrations
const MigrationDir = "database/migrations"

var (
	// ErrNoDatabaseProvided is returned when no database name or file is set
	ErrNoDatabaseProvided = errors.New("no database provided")
	// ErrUnsupportedDriver is returned for drivers other than sqlite3 and postgres
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	errNilInstance  = errors.New("database instance is nil")
	errNotConnected = errors.New("database not connected")
)

// Config holds database connection settings
type Config struct {
	Driver            string `mapstructure:"driver" json:"driver"`
	Verbose           bool   `mapstructure:"verbose" json:"verbose"`
	ConnectionDetails `mapstructure:",squash"`
}

// ConnectionDetails holds DSN information. Database is the file path for
// sqlite3
type ConnectionDetails struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     uint16 `mapstructure:"port" json:"port"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	Database string `mapstructure:"database" json:"database"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
}

// Instance holds an open connection
type Instance struct {
	m       sync.RWMutex
	SQL     *sql.DB
	config  Config
	dialect string
	logger  *log.Logger
}
