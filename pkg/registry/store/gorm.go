package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/marmos91/filedeck/pkg/registry"
)

// PostgresConfig contains PostgreSQL-specific configuration.
type PostgresConfig struct {
	Host         string `mapstructure:"host" yaml:"host"`
	Port         int    `mapstructure:"port" yaml:"port"`
	Database     string `mapstructure:"database" yaml:"database"`
	User         string `mapstructure:"user" yaml:"user"`
	Password     string `mapstructure:"password" yaml:"password"`
	SSLMode      string `mapstructure:"sslmode" yaml:"sslmode"` // disable, require, verify-ca, verify-full
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Database)
	if c.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", c.SSLMode)
	}
	return dsn
}

func (c *PostgresConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
}

func (c *PostgresConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("postgres host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("postgres database is required")
	}
	if c.User == "" {
		return fmt.Errorf("postgres user is required")
	}
	return nil
}

// userRecord is the users table row. Position preserves registration order
// across snapshots.
type userRecord struct {
	Username string `gorm:"primaryKey;size:255"`
	Password string `gorm:"not null"`
	Position int    `gorm:"not null;index"`
}

func (userRecord) TableName() string { return "users" }

// GORMStore keeps the user set in a SQL table. It supports both SQLite and
// PostgreSQL through the same code.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore opens the database described by cfg and migrates the schema.
func NewGORMStore(cfg *Config) (*GORMStore, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case TypeSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// WAL lets the admin API read while a session registers.
		dsn := cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)

	case TypePostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Type == TypePostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	if err := db.AutoMigrate(&userRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	return &GORMStore{db: db}, nil
}

func (s *GORMStore) Load(ctx context.Context) ([]registry.User, error) {
	var records []userRecord
	if err := s.db.WithContext(ctx).Order("position").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	users := make([]registry.User, 0, len(records))
	for _, r := range records {
		users = append(users, registry.User{Username: r.Username, Password: r.Password})
	}
	return users, nil
}

// Save replaces the table contents with users in one transaction.
func (s *GORMStore) Save(ctx context.Context, users []registry.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&userRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
		if len(users) == 0 {
			return nil
		}

		records := make([]userRecord, len(users))
		for i, u := range users {
			records[i] = userRecord{Username: u.Username, Password: u.Password, Position: i}
		}
		if err := tx.CreateInBatches(records, 100).Error; err != nil {
			return fmt.Errorf("failed to write users: %w", err)
		}
		return nil
	})
}

func (s *GORMStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

var _ Backend = (*GORMStore)(nil)
