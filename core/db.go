package core

import (
	"context"
	"database/sql"
)

type (
	// DBExecutor is satisfied by *sqlx.DB and *sqlx.Tx so repositories can run
	// inside or outside a transaction without caring which.
	DBExecutor interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
