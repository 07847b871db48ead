package analytics

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core"
)

type (
	// RecordRepository loads & saves student records.
	// SaveRecord must reject a record whose Version no longer matches the stored one with ErrConflict,
	// and return the saved record with its new Version.
	RecordRepository interface {
		GetRecord(ctx context.Context, studentID string) (StudentRecord, error)
		CreateRecord(ctx context.Context, rec StudentRecord) (StudentRecord, error)
		SaveRecord(ctx context.Context, rec StudentRecord) (StudentRecord, error)
	}

	// MaterialCatalog supplies published materials; an empty subject means any subject.
	MaterialCatalog interface {
		QueryMaterials(ctx context.Context, subject string, limit int) ([]MaterialSummary, error)
	}

	// QuestionBank supplies the published questions of a subject, all tiers included.
	QuestionBank interface {
		QuestionPool(ctx context.Context, subject string) ([]Question, error)
	}

	Options struct {
		DefaultTier    Tier
		MaxCandidates  int
		PageSize       int
		QuestionTarget int
		Location       *time.Location
		Clock          func() time.Time
		Shuffle        ShuffleFunc
	}

	// Service runs the analytics operations against the stores: load, compute, save once.
	// It assumes at most one in-flight mutation per student; concurrent writers get ErrConflict.
	Service struct {
		repo      RecordRepository
		catalog   MaterialCatalog
		questions QuestionBank
		opts      Options
	}
)

// OptionsFromConfig builds the service Options from the app config.
func OptionsFromConfig(conf *core.Config) Options {
	tier, _ := ParseTier(conf.Analytics.DefaultTier)
	return Options{
		DefaultTier:    tier,
		MaxCandidates:  conf.Analytics.MaxCandidates,
		PageSize:       conf.Analytics.PageSize,
		QuestionTarget: conf.Analytics.QuestionTarget,
		Location:       conf.Location(),
	}
}

func NewService(repo RecordRepository, catalog MaterialCatalog, questions QuestionBank, opts Options) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(catalog, "catalog"),
		vala.IsNotNil(questions, "questions"),
	).CheckAndPanic()

	if !opts.DefaultTier.Valid() {
		opts.DefaultTier = TierMedium
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 500
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.QuestionTarget <= 0 {
		opts.QuestionTarget = DefaultPoolSize
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Shuffle == nil {
		opts.Shuffle = RandomShuffle
	}
	return &Service{repo: repo, catalog: catalog, questions: questions, opts: opts}
}

func (svc *Service) now() time.Time {
	return svc.opts.Clock().In(svc.opts.Location)
}

func cleanStudentID(id string) (string, error) {
	id = core.CleanString(id)
	if id == "" {
		return "", invalid(ErrInvalidStudent, "student_id")
	}
	return id, nil
}

func (svc *Service) load(ctx context.Context, studentID string) (StudentRecord, error) {
	id, err := cleanStudentID(studentID)
	if err != nil {
		return StudentRecord{}, err
	}
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return StudentRecord{}, errors.Wrap(err, "loading student record")
	}
	return rec, nil
}

// Enroll creates the empty record of a student. Enrolling twice returns the existing record.
func (svc *Service) Enroll(ctx context.Context, studentID string) (StudentRecord, error) {
	id, err := cleanStudentID(studentID)
	if err != nil {
		return StudentRecord{}, err
	}
	rec, err := svc.repo.CreateRecord(ctx, NewRecord(id, svc.now()))
	if errors.Is(err, ErrRecordExists) {
		return svc.load(ctx, id)
	}
	if err != nil {
		return StudentRecord{}, errors.Wrap(err, "creating student record")
	}
	return rec, nil
}

func (svc *Service) GetRecord(ctx context.Context, studentID string) (StudentRecord, error) {
	return svc.load(ctx, studentID)
}

func (svc *Service) RecordQuizResult(ctx context.Context, studentID string, nq NewQuizResult) (QuizOutcome, error) {
	rec, err := svc.load(ctx, studentID)
	if err != nil {
		return QuizOutcome{}, err
	}
	out, err := ApplyQuizResult(rec, nq, svc.now())
	if err != nil {
		return QuizOutcome{}, err
	}
	if out.Record, err = svc.repo.SaveRecord(ctx, out.Record); err != nil {
		return QuizOutcome{}, errors.Wrap(err, "saving student record")
	}
	return out, nil
}

func (svc *Service) RecordStudySession(ctx context.Context, studentID string, ns NewStudySession) (SessionOutcome, error) {
	rec, err := svc.load(ctx, studentID)
	if err != nil {
		return SessionOutcome{}, err
	}
	out, err := ApplyStudySession(rec, ns, svc.now())
	if err != nil {
		return SessionOutcome{}, err
	}
	if out.Record, err = svc.repo.SaveRecord(ctx, out.Record); err != nil {
		return SessionOutcome{}, errors.Wrap(err, "saving student record")
	}
	return out, nil
}

func (svc *Service) candidates(ctx context.Context, subject string) ([]MaterialSummary, error) {
	ms, err := svc.catalog.QueryMaterials(ctx, core.CleanString(subject), svc.opts.MaxCandidates)
	if err != nil {
		return nil, &UpstreamError{Op: "loading material candidates", Err: err}
	}
	if len(ms) > svc.opts.MaxCandidates {
		ms = ms[:svc.opts.MaxCandidates]
	}
	return ms, nil
}

// GetRecommendations ranks catalog materials for the student and logs the issued page into the record.
func (svc *Service) GetRecommendations(ctx context.Context, studentID string, q RecommendationQuery) ([]ScoredMaterial, error) {
	rec, err := svc.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ms, err := svc.candidates(ctx, q.Subject)
	if err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = svc.opts.PageSize
	}
	now := svc.now()
	top := TopMaterials(ScoreMaterials(rec, ms, q.Subject, now), limit)
	if len(top) == 0 {
		return top, nil
	}
	if _, err = svc.repo.SaveRecord(ctx, RecordRecommendations(rec, top, now)); err != nil {
		return nil, errors.Wrap(err, "saving issued recommendations")
	}
	return top, nil
}

func (svc *Service) SelectAdaptiveQuestions(ctx context.Context, studentID string, req AdaptiveQuizRequest) (AdaptiveSelection, error) {
	rec, err := svc.load(ctx, studentID)
	if err != nil {
		return AdaptiveSelection{}, err
	}
	subject := core.CleanString(req.Subject)
	pool, err := svc.questions.QuestionPool(ctx, subject)
	if err != nil {
		return AdaptiveSelection{}, &UpstreamError{Op: "loading question pool", Err: err}
	}

	defaultTier := req.DefaultTier
	if !defaultTier.Valid() {
		defaultTier = svc.opts.DefaultTier
	}
	return SelectQuestions(rec, subject, pool, req.Count, defaultTier, svc.opts.QuestionTarget, svc.opts.Shuffle)
}

func (svc *Service) GenerateStudyPlan(ctx context.Context, studentID string, req StudyPlanRequest) (StudyPlan, error) {
	rec, err := svc.load(ctx, studentID)
	if err != nil {
		return StudyPlan{}, err
	}
	if req.DailyBudgetMinutes <= 0 {
		return StudyPlan{}, invalid(ErrInvalidDuration, "daily_budget_minutes")
	}
	subjects, err := PlanSubjects(rec, req.Subjects)
	if err != nil {
		return StudyPlan{}, err
	}

	now := svc.now()
	materials := make(map[string][]ScoredMaterial, len(subjects))
	for _, subject := range subjects {
		ms, err := svc.candidates(ctx, subject)
		if err != nil {
			return StudyPlan{}, err
		}
		materials[subject] = TopMaterials(ScoreMaterials(rec, ms, subject, now), planRecommendations)
	}
	return BuildStudyPlan(rec, subjects, req.DailyBudgetMinutes, materials, now)
}

func (svc *Service) ComputeStreakFromLedger(ctx context.Context, studentID string) (StreakSummary, error) {
	rec, err := svc.load(ctx, studentID)
	if err != nil {
		return StreakSummary{}, err
	}
	return summarizeStreak(rec, svc.now()), nil
}
