package database

import "errors"

var (
	ErrParseConfig     = errors.New("database: failed to parse connection config")
	ErrConnect         = errors.New("database: failed to open connection")
	ErrHealthcheck     = errors.New("database: healthcheck failed")
	ErrSetDialect      = errors.New("database: failed to set migration dialect")
	ErrApplyMigrations = errors.New("database: failed to apply migrations")
	ErrBeginTx         = errors.New("database: failed to begin transaction")
	ErrCommitTx        = errors.New("database: failed to commit transaction")
)
