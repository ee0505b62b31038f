package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Mynotaurus/gostreaming/internal/model"
)

type EmoteRepository interface {
	FindAll(ctx context.Context) ([]model.Emote, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) EmoteRepository
}

type emoteRepo struct {
	db sqlxDB
}

func NewEmoteRepository(db *sqlx.DB) EmoteRepository {
	return &emoteRepo{db: db}
}

func (r *emoteRepo) WithTx(tx *sqlx.Tx) EmoteRepository {
	return &emoteRepo{db: tx}
}

func (r *emoteRepo) FindAll(ctx context.Context) ([]model.Emote, error) {
	var emotes []model.Emote
	err := r.db.SelectContext(ctx, &emotes, `
		SELECT * FROM emotes ORDER BY alias
	`)
	if err != nil {
		return nil, err
	}
	return emotes, nil
}
