package analytics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

var day0 = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

func day(n int, hour ...int) time.Time {
	t := day0.AddDate(0, 0, n)
	if len(hour) > 0 {
		t = time.Date(t.Year(), t.Month(), t.Day(), hour[0], 0, 0, 0, time.UTC)
	}
	return t
}

func quiz(subject string, score float64, tier ...Tier) NewQuizResult {
	t := TierMedium
	if len(tier) > 0 {
		t = tier[0]
	}
	return NewQuizResult{Subject: subject, Score: score, MaxScore: 100, TimeSpentMinutes: 10, Difficulty: t}
}

func mustQuiz(rec StudentRecord, in NewQuizResult, now time.Time) StudentRecord {
	out, err := ApplyQuizResult(rec, in, now)
	if err != nil {
		panic(err)
	}
	return out.Record
}

func mustSession(rec StudentRecord, in NewStudySession, now time.Time) StudentRecord {
	out, err := ApplyStudySession(rec, in, now)
	if err != nil {
		panic(err)
	}
	return out.Record
}

func identityShuffle([]Question) {}

func questions(subject string, counts map[Tier]int) []Question {
	var qs []Question
	for _, t := range tiers {
		for i := 0; i < counts[t]; i++ {
			qs = append(qs, Question{ID: fmt.Sprintf("%s-%s-%02d", strings.ToLower(subject), t, i), Subject: subject, Difficulty: t})
		}
	}
	return qs
}

// memRepo is a minimal versioned record store.
type memRepo struct {
	mu      sync.Mutex
	records map[string]StudentRecord
	// beforeSave runs right before the version check, to simulate a concurrent writer.
	beforeSave func()
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[string]StudentRecord)}
}

func (r *memRepo) GetRecord(_ context.Context, id string) (StudentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return StudentRecord{}, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *memRepo) CreateRecord(_ context.Context, rec StudentRecord) (StudentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.StudentID]; ok {
		return StudentRecord{}, ErrRecordExists
	}
	rec.Version = 1
	r.records[rec.StudentID] = rec.Clone()
	return rec, nil
}

func (r *memRepo) SaveRecord(_ context.Context, rec StudentRecord) (StudentRecord, error) {
	if hook := r.beforeSave; hook != nil {
		r.beforeSave = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	curr, ok := r.records[rec.StudentID]
	if !ok {
		return StudentRecord{}, ErrRecordNotFound
	}
	if curr.Version != rec.Version {
		return StudentRecord{}, ErrConflict
	}
	rec.Version++
	r.records[rec.StudentID] = rec.Clone()
	return rec, nil
}

type memCatalog struct {
	materials []MaterialSummary
	err       error
}

func (c *memCatalog) QueryMaterials(_ context.Context, subject string, limit int) ([]MaterialSummary, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []MaterialSummary
	for _, m := range c.materials {
		if subject == "" || strings.EqualFold(m.Subject, subject) {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memBank struct {
	questions []Question
	err       error
}

func (b *memBank) QuestionPool(_ context.Context, subject string) ([]Question, error) {
	if b.err != nil {
		return nil, b.err
	}
	var out []Question
	for _, q := range b.questions {
		if strings.EqualFold(q.Subject, subject) {
			out = append(out, q)
		}
	}
	return out, nil
}
