package store

import (
	"context"

	"vinosuggest-engine/internal/domain"
)

// Repository is the storage behind PreferenceStore. Put must refuse a second
// record for a username with ErrDuplicateUsername; Get and Delete report
// ErrNotFound for unknown users.
type Repository interface {
	Exists(ctx context.Context, username string) (bool, error)
	Get(ctx context.Context, username string) (domain.PreferenceRecord, error)
	Put(ctx context.Context, rec domain.PreferenceRecord) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]domain.PreferenceRecord, error)
	Close() error
}
