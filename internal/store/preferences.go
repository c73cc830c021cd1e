package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"vinosuggest-engine/internal/domain"
	"vinosuggest-engine/internal/logging"
	"vinosuggest-engine/internal/metrics"
)

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

var opOutcomes = map[error]string{
	ErrNotFound:          "not_found",
	ErrDuplicateUsername: "duplicate",
	ErrEmptyPreferences:  "rejected",
	ErrEmptyUsername:     "rejected",
	ErrMalformedRecord:   "malformed",
}

// PreferenceStore enforces the save rules on top of a Repository.
type PreferenceStore struct {
	repo    Repository
	backend string
	log     zerolog.Logger
}

func NewPreferenceStore(repo Repository, backend string) *PreferenceStore {
	return &PreferenceStore{
		repo:    repo,
		backend: backend,
		log:     logging.With("store"),
	}
}

// OpenBackend builds the repository named by backend ("csv" or "sqlite").
func OpenBackend(ctx context.Context, backend, path string) (*PreferenceStore, error) {
	var (
		repo Repository
		err  error
	)
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendCSV:
		backend = BackendCSV
		repo, err = NewCSVRepository(path)
	case BackendSQLite:
		backend = BackendSQLite
		repo, err = OpenSQLiteRepository(ctx, path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return NewPreferenceStore(repo, backend), nil
}

func (s *PreferenceStore) Backend() string { return s.backend }

func (s *PreferenceStore) Close() error { return s.repo.Close() }

func (s *PreferenceStore) Exists(ctx context.Context, username string) (bool, error) {
	ok, err := s.repo.Exists(ctx, username)
	metrics.RecordStoreOp(s.backend, "exists", err, opOutcomes)
	return ok, err
}

// Save stores a new record. Category names are matched case-insensitively;
// names outside the fixed set are dropped before the emptiness check.
func (s *PreferenceStore) Save(ctx context.Context, rec domain.PreferenceRecord) (err error) {
	defer func() { metrics.RecordStoreOp(s.backend, "save", err, opOutcomes) }()

	if strings.TrimSpace(rec.Username) == "" {
		return ErrEmptyUsername
	}

	exists, err := s.repo.Exists(ctx, rec.Username)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateUsername
	}

	rec.Preferences = rec.Preferences.Canonical()
	if rec.Preferences.AllBlank() {
		return ErrEmptyPreferences
	}

	if err := s.repo.Put(ctx, rec); err != nil {
		return err
	}
	s.log.Info().Str("user", rec.Username).
		Float64("min_price", rec.MinPrice).
		Float64("max_price", rec.MaxPrice).
		Msg("preferences saved")
	return nil
}

func (s *PreferenceStore) Load(ctx context.Context, username string) (domain.PreferenceRecord, error) {
	rec, err := s.repo.Get(ctx, username)
	metrics.RecordStoreOp(s.backend, "load", err, opOutcomes)
	if errors.Is(err, ErrMalformedRecord) {
		s.log.Error().Err(err).Str("user", username).Msg("stored record unreadable")
	}
	return rec, err
}

func (s *PreferenceStore) Delete(ctx context.Context, username string) error {
	err := s.repo.Delete(ctx, username)
	metrics.RecordStoreOp(s.backend, "delete", err, opOutcomes)
	if err == nil {
		s.log.Info().Str("user", username).Msg("preferences deleted")
	}
	return err
}

func (s *PreferenceStore) List(ctx context.Context) ([]domain.PreferenceRecord, error) {
	recs, err := s.repo.List(ctx)
	metrics.RecordStoreOp(s.backend, "list", err, opOutcomes)
	return recs, err
}
