package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/Mynotaurus/gostreaming/internal/model"
)

type StreamerRepository interface {
	// FindByUsername looks a streamer up case-insensitively.
	// Returns nil without error when no such streamer exists.
	FindByUsername(ctx context.Context, username string) (*model.StreamerSettings, error)
	FindByKey(ctx context.Context, key string) (*model.StreamerSettings, error)
	FindAll(ctx context.Context) ([]model.StreamerSettings, error)
	UpdateDescription(ctx context.Context, username, description string) error
	UpdatePassword(ctx context.Context, username string, password *string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) StreamerRepository
}

type streamerRepo struct {
	db sqlxDB
}

// sqlxDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sqlxDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func NewStreamerRepository(db *sqlx.DB) StreamerRepository {
	return &streamerRepo{db: db}
}

func (r *streamerRepo) WithTx(tx *sqlx.Tx) StreamerRepository {
	return &streamerRepo{db: tx}
}

func (r *streamerRepo) FindByUsername(ctx context.Context, username string) (*model.StreamerSettings, error) {
	var settings model.StreamerSettings
	err := r.db.GetContext(ctx, &settings, `
		SELECT * FROM streamersettings WHERE LOWER(username) = LOWER($1)
	`, username)
	return HandleNotFound(&settings, err)
}

func (r *streamerRepo) FindByKey(ctx context.Context, key string) (*model.StreamerSettings, error) {
	var settings model.StreamerSettings
	err := r.db.GetContext(ctx, &settings, `
		SELECT * FROM streamersettings WHERE key = $1
	`, key)
	return HandleNotFound(&settings, err)
}

func (r *streamerRepo) FindAll(ctx context.Context) ([]model.StreamerSettings, error) {
	var settings []model.StreamerSettings
	err := r.db.SelectContext(ctx, &settings, `
		SELECT * FROM streamersettings ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *streamerRepo) UpdateDescription(ctx context.Context, username, description string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE streamersettings SET description = $2 WHERE LOWER(username) = LOWER($1)
	`, username, description)
	return err
}

func (r *streamerRepo) UpdatePassword(ctx context.Context, username string, password *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE streamersettings SET streampass = $2 WHERE LOWER(username) = LOWER($1)
	`, username, password)
	return err
}
