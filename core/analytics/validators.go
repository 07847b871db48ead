package analytics

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-learn/core"
)

var (
	tierTag  = "tier"
	tierText = "must be one of low, medium, high"
)

type (
	NewQuizResult struct {
		QuizID           string  `json:"quiz_id" validate:"omitempty,max=64"`
		Subject          string  `json:"subject" validate:"required,notblank,max=128"`
		Score            float64 `json:"score"`
		MaxScore         float64 `json:"max_score" validate:"required"`
		TimeSpentMinutes float64 `json:"time_spent_minutes" validate:"gte=0"`
		Difficulty       Tier    `json:"difficulty" validate:"required,tier"`
	}

	NewStudySession struct {
		Subject         string  `json:"subject" validate:"omitempty,notblank,max=128"`
		DurationMinutes float64 `json:"duration_minutes" validate:"required"`
	}

	RecommendationQuery struct {
		Subject string `json:"subject" query:"subject" validate:"omitempty,max=128"`
		Limit   int    `json:"limit" query:"limit" validate:"gte=0,lte=100"`
	}

	AdaptiveQuizRequest struct {
		Subject     string `json:"subject" query:"subject" validate:"required,notblank,max=128"`
		Count       int    `json:"count" query:"count" validate:"gte=0,lte=100"`
		DefaultTier Tier   `json:"default_tier" query:"default_tier" validate:"omitempty,tier"`
	}

	StudyPlanRequest struct {
		Subjects           []string `json:"subjects" validate:"omitempty,max=20,dive,notblank,max=128"`
		DailyBudgetMinutes float64  `json:"daily_budget_minutes" validate:"required,gt=0,lte=1440"`
	}
)

// InitValidators registers the analytics validation tags & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tierTag, tierValidation)
	core.RegisterCustomTranslation(validate, translator, tierTag, tierText)
}

func tierValidation(fl validator.FieldLevel) bool {
	_, ok := ParseTier(fl.Field().String())
	return ok
}

func (nq *NewQuizResult) Validate(validate *validator.Validate) error {
	if t, ok := ParseTier(string(nq.Difficulty)); ok {
		nq.Difficulty = t
	}
	return validate.Struct(nq)
}

func (ns *NewStudySession) Validate(validate *validator.Validate) error {
	return validate.Struct(ns)
}

func (q *RecommendationQuery) Validate(validate *validator.Validate) error {
	return validate.Struct(q)
}

func (q *AdaptiveQuizRequest) Validate(validate *validator.Validate) error {
	if t, ok := ParseTier(string(q.DefaultTier)); ok {
		q.DefaultTier = t
	}
	return validate.Struct(q)
}

func (r *StudyPlanRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
