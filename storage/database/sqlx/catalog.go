package sqlxrepos

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/masomo-learn/core/analytics"
)

type (
	materialRow struct {
		ID          string      `db:"id"`
		Subject     string      `db:"subject"`
		Title       null.String `db:"title"`
		Difficulty  string      `db:"difficulty"`
		ViewCount   int64       `db:"view_count"`
		LikeCount   int64       `db:"like_count"`
		ContentType null.String `db:"content_type"`
		CreatedAt   time.Time   `db:"created_at"`
	}

	questionRow struct {
		ID         string `db:"id"`
		Subject    string `db:"subject"`
		Difficulty string `db:"difficulty"`
		Payload    []byte `db:"payload"`
	}
)

func (r materialRow) toModel() analytics.MaterialSummary {
	tier, _ := analytics.ParseTier(r.Difficulty)
	return analytics.MaterialSummary{
		ID:          r.ID,
		Subject:     r.Subject,
		Title:       r.Title.String,
		Difficulty:  tier,
		ViewCount:   r.ViewCount,
		LikeCount:   r.LikeCount,
		ContentType: strings.ToLower(r.ContentType.String),
		CreatedAt:   r.CreatedAt,
	}
}

func (r questionRow) toModel() analytics.Question {
	tier, _ := analytics.ParseTier(r.Difficulty)
	payload := make(json.RawMessage, len(r.Payload))
	copy(payload, r.Payload)
	return analytics.Question{ID: r.ID, Subject: r.Subject, Difficulty: tier, Payload: payload}
}

const (
	materialColumns = `id, subject, title, difficulty, view_count, like_count, content_type, created_at`
	questionColumns = `id, subject, difficulty, payload`
)

// materialsQuery builds the candidate query: published only, most viewed first.
func materialsQuery(subject string, limit int) (string, []interface{}) {
	var (
		b    strings.Builder
		args []interface{}
	)
	b.WriteString(`SELECT ` + materialColumns + ` FROM materials WHERE published`)
	if subject != "" {
		args = append(args, subject)
		b.WriteString(` AND LOWER(subject) = LOWER(?)`)
	}
	b.WriteString(` ORDER BY view_count DESC, id ASC`)
	if limit > 0 {
		args = append(args, limit)
		b.WriteString(` LIMIT ?`)
	}
	return b.String(), args
}

type materialRepository struct {
	db *sqlx.DB
}

var _ analytics.MaterialCatalog = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(db *sqlx.DB) analytics.MaterialCatalog {
	return &materialRepository{db: db}
}

func (repo *materialRepository) QueryMaterials(ctx context.Context, subject string, limit int) ([]analytics.MaterialSummary, error) {
	q, args := materialsQuery(subject, limit)
	var rows []materialRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting materials")
	}

	materials := make([]analytics.MaterialSummary, 0, len(rows))
	for _, r := range rows {
		materials = append(materials, r.toModel())
	}
	return materials, nil
}

type questionRepository struct {
	db *sqlx.DB
}

var _ analytics.QuestionBank = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *sqlx.DB) analytics.QuestionBank {
	return &questionRepository{db: db}
}

func (repo *questionRepository) QuestionPool(ctx context.Context, subject string) ([]analytics.Question, error) {
	q := `SELECT ` + questionColumns + ` FROM questions WHERE published AND LOWER(subject) = LOWER(?) ORDER BY id`
	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), subject); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}

	questions := make([]analytics.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toModel())
	}
	return questions, nil
}
