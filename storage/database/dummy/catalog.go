package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/masomo-learn/core/analytics"
)

type materialRepository struct {
	db *materialTable
}

var _ analytics.MaterialCatalog = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *DB) analytics.MaterialCatalog {
	return &materialRepository{db: db.material}
}

// QueryMaterials mirrors the SQL repository: subject matched case-insensitively, most viewed first.
func (repo *materialRepository) QueryMaterials(_ context.Context, subject string, limit int) ([]analytics.MaterialSummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	materials := make([]analytics.MaterialSummary, 0, len(repo.db.table))
	for _, m := range repo.db.table {
		if subject == "" || strings.EqualFold(m.Subject, subject) {
			materials = append(materials, m)
		}
	}
	sort.Slice(materials, func(i, j int) bool {
		if materials[i].ViewCount != materials[j].ViewCount {
			return materials[i].ViewCount > materials[j].ViewCount
		}
		return materials[i].ID < materials[j].ID
	})
	if limit > 0 && len(materials) > limit {
		materials = materials[:limit]
	}
	return materials, nil
}

type questionRepository struct {
	db *questionTable
}

var _ analytics.QuestionBank = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) analytics.QuestionBank {
	return &questionRepository{db: db.question}
}

func (repo *questionRepository) QuestionPool(_ context.Context, subject string) ([]analytics.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var questions []analytics.Question
	for _, q := range repo.db.table {
		if strings.EqualFold(q.Subject, subject) {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}
