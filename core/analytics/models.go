package analytics

import (
	"encoding/json"
	"strings"
	"time"
)

// Bounds & lifetimes of the record's rolling lists.
const (
	MaxRecommendations = 20
	MaxAlerts          = 50
	RecommendationTTL  = 7 * 24 * time.Hour
)

// Tier is a difficulty tier of materials & questions.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

var tiers = []Tier{TierLow, TierMedium, TierHigh}

// ParseTier returns the Tier matching s (case-insensitive).
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	return t, t.rank() >= 0
}

func (t Tier) rank() int {
	for i, tt := range tiers {
		if tt == t {
			return i
		}
	}
	return -1
}

func (t Tier) Valid() bool { return t.rank() >= 0 }

// Above returns the next harder tier, if any.
func (t Tier) Above() (Tier, bool) {
	r := t.rank()
	if r < 0 || r+1 >= len(tiers) {
		return "", false
	}
	return tiers[r+1], true
}

// Below returns the next easier tier, if any.
func (t Tier) Below() (Tier, bool) {
	r := t.rank()
	if r <= 0 {
		return "", false
	}
	return tiers[r-1], true
}

// Level is a student's skill level in a subject.
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
)

// Tier collapses the 4 skill levels onto the 3 material tiers.
func (l Level) Tier() Tier {
	switch l {
	case LevelIntermediate, LevelAdvanced:
		return TierMedium
	case LevelExpert:
		return TierHigh
	default:
		return TierLow
	}
}

type (
	QuizScore struct {
		QuizID           string    `json:"quiz_id,omitempty" bson:"quiz_id,omitempty"`
		Subject          string    `json:"subject" bson:"subject"`
		Score            float64   `json:"score" bson:"score"`
		MaxScore         float64   `json:"max_score" bson:"max_score"`
		TimeSpentMinutes float64   `json:"time_spent_minutes" bson:"time_spent_minutes"`
		Difficulty       Tier      `json:"difficulty" bson:"difficulty"`
		AttemptCount     int       `json:"attempt_count" bson:"attempt_count"`
		OccurredAt       time.Time `json:"occurred_at" bson:"occurred_at"`
	}

	StudySession struct {
		Subject         string    `json:"subject,omitempty" bson:"subject,omitempty"`
		DurationMinutes float64   `json:"duration_minutes" bson:"duration_minutes"`
		OccurredAt      time.Time `json:"occurred_at" bson:"occurred_at"`
	}

	Performance struct {
		QuizzesTaken int     `json:"quizzes_taken" bson:"quizzes_taken"`
		TotalScore   float64 `json:"total_score" bson:"total_score"`
		AverageScore float64 `json:"average_score" bson:"average_score"`
	}

	Engagement struct {
		TotalTimeSpentMinutes float64   `json:"total_time_spent_minutes" bson:"total_time_spent_minutes"`
		SessionsCount         int       `json:"sessions_count" bson:"sessions_count"`
		AverageSessionTime    float64   `json:"average_session_time" bson:"average_session_time"`
		LastSessionAt         time.Time `json:"last_session_at,omitempty" bson:"last_session_at,omitempty"`
		LastActivityAt        time.Time `json:"last_activity_at,omitempty" bson:"last_activity_at,omitempty"`
		StreakDays            int       `json:"streak_days" bson:"streak_days"`
		LongestStreak         int       `json:"longest_streak" bson:"longest_streak"`
	}

	SubjectProgress struct {
		QuizzesTaken     int     `json:"quizzes_taken" bson:"quizzes_taken"`
		TotalScore       float64 `json:"total_score" bson:"total_score"`
		AverageScore     float64 `json:"average_score" bson:"average_score"`
		CurrentLevel     Level   `json:"current_level" bson:"current_level"`
		StudyTimeMinutes float64 `json:"study_time_minutes" bson:"study_time_minutes"`
	}

	Achievement struct {
		ID       string    `json:"id" bson:"id"`
		EarnedAt time.Time `json:"earned_at" bson:"earned_at"`
	}

	Recommendation struct {
		ID         string    `json:"id" bson:"id"`
		MaterialID string    `json:"material_id" bson:"material_id"`
		Subject    string    `json:"subject" bson:"subject"`
		Score      float64   `json:"score" bson:"score"`
		CreatedAt  time.Time `json:"created_at" bson:"created_at"`
		ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"`
	}

	Alert struct {
		ID        string    `json:"id" bson:"id"`
		Type      AlertType `json:"type" bson:"type"`
		Subject   string    `json:"subject,omitempty" bson:"subject,omitempty"`
		Message   string    `json:"message" bson:"message"`
		CreatedAt time.Time `json:"created_at" bson:"created_at"`
	}

	// MaterialSummary is a read-only view of a catalog material.
	MaterialSummary struct {
		ID          string    `json:"id"`
		Subject     string    `json:"subject"`
		Title       string    `json:"title,omitempty"`
		Difficulty  Tier      `json:"difficulty"`
		ViewCount   int64     `json:"view_count"`
		LikeCount   int64     `json:"like_count"`
		ContentType string    `json:"content_type,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}

	Question struct {
		ID         string          `json:"id"`
		Subject    string          `json:"subject"`
		Difficulty Tier            `json:"difficulty"`
		Payload    json.RawMessage `json:"payload,omitempty"`
	}
)

type AlertType string

const (
	AlertAchievement     AlertType = "achievement"
	AlertLevelUp         AlertType = "level_up"
	AlertPerformanceDrop AlertType = "performance_drop"
	AlertStreakMilestone AlertType = "streak_milestone"
)

// Percent normalizes the score to the 0-100 scale.
func (q QuizScore) Percent() float64 {
	if q.MaxScore <= 0 {
		return 0
	}
	return q.Score * 100 / q.MaxScore
}

// SubjectProgressMap maps a subject name to its progress.
type SubjectProgressMap map[string]*SubjectProgress

// Get looks the subject up, falling back to a case-insensitive match.
func (m SubjectProgressMap) Get(subject string) (*SubjectProgress, bool) {
	if p, ok := m[subject]; ok {
		return p, true
	}
	for k, p := range m {
		if strings.EqualFold(k, subject) {
			return p, true
		}
	}
	return nil, false
}

// Ensure returns the subject's progress, creating a beginner entry if absent.
func (m SubjectProgressMap) Ensure(subject string) *SubjectProgress {
	if p, ok := m.Get(subject); ok {
		return p
	}
	p := &SubjectProgress{CurrentLevel: LevelBeginner}
	m[subject] = p
	return p
}

// LevelOf returns the subject's current level; subjects never seen are beginner.
func (m SubjectProgressMap) LevelOf(subject string) Level {
	if p, ok := m.Get(subject); ok && p.CurrentLevel != "" {
		return p.CurrentLevel
	}
	return LevelBeginner
}

type Achievements []Achievement

func (a Achievements) Has(id string) bool {
	for _, ach := range a {
		if ach.ID == id {
			return true
		}
	}
	return false
}

// StudentRecord is the analytics state of one student.
type StudentRecord struct {
	StudentID       string                      `json:"student_id" bson:"_id"`
	QuizScores      []QuizScore                 `json:"quiz_scores" bson:"quiz_scores"`
	Sessions        []StudySession              `json:"sessions" bson:"sessions"`
	Performance     Performance                 `json:"performance" bson:"performance"`
	Engagement      Engagement                  `json:"engagement" bson:"engagement"`
	SubjectProgress SubjectProgressMap          `json:"subject_progress" bson:"subject_progress"`
	Achievements    Achievements                `json:"achievements" bson:"achievements"`
	Recommendations BoundedList[Recommendation] `json:"recommendations" bson:"recommendations"`
	Alerts          BoundedList[Alert]          `json:"alerts" bson:"alerts"`
	Version         int64                       `json:"version" bson:"version"`
	CreatedAt       time.Time                   `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at" bson:"updated_at"`
}

// NewRecord returns the empty record of a newly enrolled student.
func NewRecord(studentID string, now time.Time) StudentRecord {
	return StudentRecord{
		StudentID:       studentID,
		QuizScores:      []QuizScore{},
		Sessions:        []StudySession{},
		SubjectProgress: make(SubjectProgressMap),
		Achievements:    Achievements{},
		Recommendations: BoundedList[Recommendation]{},
		Alerts:          BoundedList[Alert]{},
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
}

// Clone returns a deep copy, so operations never mutate their input.
func (r StudentRecord) Clone() StudentRecord {
	c := r
	c.QuizScores = append([]QuizScore{}, r.QuizScores...)
	c.Sessions = append([]StudySession{}, r.Sessions...)
	c.Achievements = append(Achievements{}, r.Achievements...)
	c.Recommendations = append(BoundedList[Recommendation]{}, r.Recommendations...)
	c.Alerts = append(BoundedList[Alert]{}, r.Alerts...)
	c.SubjectProgress = make(SubjectProgressMap, len(r.SubjectProgress))
	for k, p := range r.SubjectProgress {
		pp := *p
		c.SubjectProgress[k] = &pp
	}
	return c
}
