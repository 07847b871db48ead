package dummydb

import (
	"context"

	"github.com/trezcool/masomo-learn/core/analytics"
)

type recordRepository struct {
	db *recordTable
}

var _ analytics.RecordRepository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *DB) analytics.RecordRepository {
	return &recordRepository{db: db.record}
}

func (repo *recordRepository) GetRecord(_ context.Context, studentID string) (analytics.StudentRecord, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[studentID]; ok {
		return rec.Clone(), nil
	}
	return analytics.StudentRecord{}, analytics.ErrRecordNotFound
}

func (repo *recordRepository) CreateRecord(_ context.Context, rec analytics.StudentRecord) (analytics.StudentRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[rec.StudentID]; ok {
		return analytics.StudentRecord{}, analytics.ErrRecordExists
	}
	rec.Version = 1
	repo.db.table[rec.StudentID] = rec.Clone()
	return rec, nil
}

func (repo *recordRepository) SaveRecord(_ context.Context, rec analytics.StudentRecord) (analytics.StudentRecord, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored, ok := repo.db.table[rec.StudentID]
	if !ok {
		return analytics.StudentRecord{}, analytics.ErrRecordNotFound
	}
	if stored.Version != rec.Version {
		return analytics.StudentRecord{}, analytics.ErrConflict
	}
	rec.Version++
	repo.db.table[rec.StudentID] = rec.Clone()
	return rec, nil
}
