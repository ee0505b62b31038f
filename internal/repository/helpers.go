package repository

import (
	"database/sql"
	"errors"
)

// HandleNotFound collapses sql.ErrNoRows into a nil result, so Find*
// methods report a missing row as (nil, nil) rather than an error:
//
//	var settings model.StreamerSettings
//	err := r.db.GetContext(ctx, &settings, query, args...)
//	return HandleNotFound(&settings, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
