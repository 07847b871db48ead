package dummydb

import (
	"sync"

	"github.com/trezcool/masomo-learn/core/analytics"
)

type (
	// DB keeps records, materials and questions in memory. Used in dev and tests.
	DB struct {
		record   *recordTable
		material *materialTable
		question *questionTable
	}

	recordTable struct {
		sync.RWMutex
		table map[string]analytics.StudentRecord
	}

	materialTable struct {
		sync.RWMutex
		table []analytics.MaterialSummary
	}

	questionTable struct {
		sync.RWMutex
		table []analytics.Question
	}
)

func Open() (*DB, error) {
	db := &DB{
		record:   &recordTable{table: make(map[string]analytics.StudentRecord)},
		material: &materialTable{},
		question: &questionTable{},
	}
	return db, nil
}

// SeedMaterials adds published materials to the catalog.
func (db *DB) SeedMaterials(materials ...analytics.MaterialSummary) {
	db.material.Lock()
	defer db.material.Unlock()
	db.material.table = append(db.material.table, materials...)
}

// SeedQuestions adds published questions to the bank.
func (db *DB) SeedQuestions(questions ...analytics.Question) {
	db.question.Lock()
	defer db.question.Unlock()
	db.question.table = append(db.question.table, questions...)
}

// Reset empties every table.
func (db *DB) Reset() {
	db.record.Lock()
	db.record.table = make(map[string]analytics.StudentRecord)
	db.record.Unlock()

	db.material.Lock()
	db.material.table = nil
	db.material.Unlock()

	db.question.Lock()
	db.question.table = nil
	db.question.Unlock()
}
