// Package store is the Persistence Store of spec.md §4.A: a durable,
// crash-safe table of Download Records keyed by id, backed by an embedded
// relational database exactly as described in spec.md §6.
package store

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"rangedl/internal/rderrors"
)

// Store wraps a gorm handle over the sqlite schema of spec.md §6.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if absent) the sqlite database at path and runs the
// schema migration for the downloads and download_segments tables.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, rderrors.Storage("failed to open persistence store", err)
	}
	if err := db.AutoMigrate(&Download{}, &Segment{}); err != nil {
		return nil, rderrors.Storage("failed to migrate persistence store", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory store, used by tests.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

// Save upserts r by id. Matches the original's `INSERT OR REPLACE`
// semantics (original_source/persistence.rs save_download) via gorm's
// OnConflict clause.
func (s *Store) Save(r Record) error {
	m := toModel(r)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
	if err != nil {
		return rderrors.Storage("failed to save download record", err)
	}
	return nil
}

// Get returns the record for id, or rderrors.ErrNotFound if absent.
func (s *Store) Get(id string) (Record, error) {
	var m Download
	err := s.db.First(&m, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Record{}, rderrors.ErrNotFound
		}
		return Record{}, rderrors.Storage("failed to load download record", err)
	}
	return fromModel(m, rderrors.UnknownReason), nil
}

// LoadAll returns every persisted record; ordering is not guaranteed, per
// spec.md §4.A.
func (s *Store) LoadAll() ([]Record, error) {
	var models []Download
	if err := s.db.Find(&models).Error; err != nil {
		return nil, rderrors.Storage("failed to load download records", err)
	}
	out := make([]Record, 0, len(models))
	for _, m := range models {
		out = append(out, fromModel(m, rderrors.UnknownReason))
	}
	return out, nil
}

// Delete removes id; it is not an error if the id is absent.
func (s *Store) Delete(id string) error {
	if err := s.db.Select("Segments").Delete(&Download{ID: id}).Error; err != nil {
		return rderrors.Storage("failed to delete download record", err)
	}
	if err := s.db.Where("download_id = ?", id).Delete(&Segment{}).Error; err != nil {
		return rderrors.Storage("failed to delete download segments", err)
	}
	return nil
}

// SaveSegments replaces the advisory segment rows for a download. Not
// consulted on restart by the supervisor (spec.md §9); kept for future
// resume-by-segment support and for external introspection.
func (s *Store) SaveSegments(downloadID string, segs []Segment) error {
	if err := s.db.Where("download_id = ?", downloadID).Delete(&Segment{}).Error; err != nil {
		return rderrors.Storage("failed to clear download segments", err)
	}
	if len(segs) == 0 {
		return nil
	}
	if err := s.db.Create(&segs).Error; err != nil {
		return rderrors.Storage("failed to save download segments", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
