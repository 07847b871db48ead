package analytics

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	planSubjectsLookback = 10
	planRecommendations  = 3
	planGoalUplift       = 10.0
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type (
	Activity struct {
		Kind        string  `json:"kind"`
		Minutes     float64 `json:"minutes"`
		Description string  `json:"description"`
	}

	SubjectPlan struct {
		Subject         string           `json:"subject"`
		Priority        Priority         `json:"priority"`
		DailyMinutes    float64          `json:"daily_minutes"`
		AverageScore    float64          `json:"average_score"`
		CurrentLevel    Level            `json:"current_level"`
		Recommendations []ScoredMaterial `json:"recommendations"`
		Goals           []string         `json:"goals"`
		Activities      []Activity       `json:"activities"`
	}

	StudyPlan struct {
		StudentID          string        `json:"student_id"`
		DailyBudgetMinutes float64       `json:"daily_budget_minutes"`
		TotalStudyTime     float64       `json:"total_study_time"`
		StartsAt           time.Time     `json:"starts_at"`
		EndsAt             time.Time     `json:"ends_at"`
		GeneratedAt        time.Time     `json:"generated_at"`
		Subjects           []SubjectPlan `json:"subjects"`
	}
)

// RecentSubjects returns the distinct subjects of the last n ledger entries, most recent first.
func RecentSubjects(rec StudentRecord, n int) []string {
	var subjects []string
	seen := make(map[string]bool)
	for i := len(rec.QuizScores) - 1; i >= 0 && i >= len(rec.QuizScores)-n; i-- {
		s := rec.QuizScores[i].Subject
		if key := strings.ToLower(s); !seen[key] {
			seen[key] = true
			subjects = append(subjects, s)
		}
	}
	return subjects
}

// PlanSubjects cleans & dedupes the requested subjects, or falls back to the recent ledger subjects.
func PlanSubjects(rec StudentRecord, requested []string) ([]string, error) {
	var subjects []string
	seen := make(map[string]bool)
	for _, s := range requested {
		s = strings.TrimSpace(s)
		if key := strings.ToLower(s); s != "" && !seen[key] {
			seen[key] = true
			subjects = append(subjects, s)
		}
	}
	if len(subjects) == 0 {
		subjects = RecentSubjects(rec, planSubjectsLookback)
	}
	if len(subjects) == 0 {
		return nil, invalid(ErrNoSubjects, "subjects")
	}
	return subjects, nil
}

func priorityFor(avg float64) (Priority, float64) {
	switch {
	case avg < 60:
		return PriorityHigh, 1.5
	case avg > 85:
		return PriorityLow, 0.8
	default:
		return PriorityMedium, 1
	}
}

// activitiesFor splits the allocated minutes into coarse theory/practice/review blocks.
func activitiesFor(subject string, minutes float64) []Activity {
	type part struct {
		kind   string
		weight float64
		desc   string
	}
	var parts []part
	switch {
	case minutes >= 60:
		parts = []part{
			{"theory", 30, "Read and watch %s materials"},
			{"practice", 20, "Solve %s exercises"},
			{"review", 10, "Review %s notes and mistakes"},
		}
	case minutes >= 30:
		parts = []part{
			{"theory", 20, "Read and watch %s materials"},
			{"practice", 10, "Solve %s exercises"},
		}
	default:
		parts = []part{{"study", 1, "Study and practice %s"}}
	}

	var total float64
	for _, p := range parts {
		total += p.weight
	}
	acts := make([]Activity, 0, len(parts))
	for _, p := range parts {
		acts = append(acts, Activity{
			Kind:        p.kind,
			Minutes:     minutes * p.weight / total,
			Description: fmt.Sprintf(p.desc, subject),
		})
	}
	return acts
}

func goalsFor(subject string, level Level, hasHistory bool, avg float64) []string {
	if !hasHistory {
		return []string{
			fmt.Sprintf("Start with introductory %s materials", subject),
			fmt.Sprintf("Take a first %s quiz", subject),
		}
	}
	target := math.Min(100, avg+planGoalUplift)
	goals := []string{fmt.Sprintf("Raise your %s average from %.0f%% to %.0f%%", subject, avg, target)}
	if next, minScore, ok := NextLevelThreshold(level); ok {
		goals = append(goals, fmt.Sprintf("Score %.0f%% or more on a %s quiz to reach %s", minScore, subject, next))
	}
	return goals
}

// BuildStudyPlan allocates the daily budget across subjects (weaker subjects get more time)
// and composes recommendations, goals and activities into a one week plan.
// materials holds the ranked materials of each subject.
func BuildStudyPlan(
	rec StudentRecord,
	subjects []string,
	dailyBudget float64,
	materials map[string][]ScoredMaterial,
	now time.Time,
) (StudyPlan, error) {
	if dailyBudget <= 0 {
		return StudyPlan{}, invalid(ErrInvalidDuration, "daily_budget_minutes")
	}
	if len(subjects) == 0 {
		return StudyPlan{}, invalid(ErrNoSubjects, "subjects")
	}

	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	plan := StudyPlan{
		StudentID:          rec.StudentID,
		DailyBudgetMinutes: dailyBudget,
		TotalStudyTime:     dailyBudget * 7,
		StartsAt:           start,
		EndsAt:             start.AddDate(0, 0, 7),
		GeneratedAt:        now,
		Subjects:           make([]SubjectPlan, 0, len(subjects)),
	}

	baseline := dailyBudget / float64(len(subjects))
	for _, subject := range subjects {
		avg, n := subjectAverage(rec, subject)
		priority, factor := priorityFor(avg)
		minutes := baseline * factor
		level := rec.SubjectProgress.LevelOf(subject)

		sp := SubjectPlan{
			Subject:         subject,
			Priority:        priority,
			DailyMinutes:    minutes,
			AverageScore:    avg,
			CurrentLevel:    level,
			Recommendations: append([]ScoredMaterial{}, TopMaterials(materials[subject], planRecommendations)...),
			Goals:           goalsFor(subject, level, n > 0, avg),
			Activities:      activitiesFor(subject, minutes),
		}
		plan.Subjects = append(plan.Subjects, sp)
	}
	return plan, nil
}
