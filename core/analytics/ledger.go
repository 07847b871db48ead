package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/masomo-learn/core"
)

var NewID = func() string { return uuid.New().String() } // mockable

// PerformanceDropMargin is how far (in points) below the subject average a score must fall to raise an alert.
const (
	PerformanceDropMargin     = 15.0
	PerformanceDropMinQuizzes = 3
)

type (
	QuizOutcome struct {
		Record          StudentRecord `json:"record"`
		Entry           QuizScore     `json:"entry"`
		LevelChange     *LevelChange  `json:"level_change,omitempty"`
		NewAchievements []Achievement `json:"new_achievements"`
		NewAlerts       []Alert       `json:"new_alerts"`
	}

	SessionOutcome struct {
		Record          StudentRecord `json:"record"`
		Session         StudySession  `json:"session"`
		NewAchievements []Achievement `json:"new_achievements"`
		NewAlerts       []Alert       `json:"new_alerts"`
	}
)

func newAlert(typ AlertType, subject, msg string, now time.Time) Alert {
	return Alert{ID: NewID(), Type: typ, Subject: subject, Message: msg, CreatedAt: now.UTC()}
}

func checkQuizResult(in NewQuizResult) error {
	if in.MaxScore <= 0 {
		return invalid(ErrInvalidScore, "max_score")
	}
	if in.Score < 0 || in.Score > in.MaxScore {
		return invalid(ErrInvalidScore, "score")
	}
	if in.TimeSpentMinutes < 0 {
		return invalid(ErrInvalidDuration, "time_spent_minutes")
	}
	if !in.Difficulty.Valid() {
		return invalid(ErrInvalidTier, "difficulty")
	}
	if core.CleanString(in.Subject) == "" {
		return core.NewValidationError(fmt.Errorf("subject is required"), core.FieldError{Field: "subject", Error: "this field is required"})
	}
	return nil
}

func attemptCount(scores []QuizScore, quizID string) int {
	if quizID == "" {
		return 1
	}
	n := 1
	for _, q := range scores {
		if q.QuizID == quizID {
			n++
		}
	}
	return n
}

// ApplyQuizResult appends a quiz result to the ledger and updates every derived field:
// aggregates, streak, level (from this single score) then achievements.
// rec is left untouched; nothing is applied when the input is invalid.
func ApplyQuizResult(rec StudentRecord, in NewQuizResult, now time.Time) (QuizOutcome, error) {
	if err := checkQuizResult(in); err != nil {
		return QuizOutcome{}, err
	}

	rec = rec.Clone()
	subject := core.CleanString(in.Subject)
	entry := QuizScore{
		QuizID:           core.CleanString(in.QuizID),
		Subject:          subject,
		Score:            in.Score,
		MaxScore:         in.MaxScore,
		TimeSpentMinutes: in.TimeSpentMinutes,
		Difficulty:       in.Difficulty,
		OccurredAt:       now.UTC(),
	}
	entry.AttemptCount = attemptCount(rec.QuizScores, entry.QuizID)
	pct := entry.Percent()

	var alerts []Alert
	prog := rec.SubjectProgress.Ensure(subject)
	if prog.QuizzesTaken >= PerformanceDropMinQuizzes && pct < prog.AverageScore-PerformanceDropMargin {
		msg := fmt.Sprintf("Score of %.0f%% in %s is well below your average of %.0f%%", pct, subject, prog.AverageScore)
		alerts = append(alerts, newAlert(AlertPerformanceDrop, subject, msg, now))
	}

	// ledger & aggregates
	rec.QuizScores = append(rec.QuizScores, entry)
	rec.Performance.QuizzesTaken++
	rec.Performance.TotalScore += pct
	rec.Performance.AverageScore = rec.Performance.TotalScore / float64(rec.Performance.QuizzesTaken)
	prog.QuizzesTaken++
	prog.TotalScore += pct
	prog.AverageScore = prog.TotalScore / float64(prog.QuizzesTaken)

	if trackActivity(&rec.Engagement, now) {
		alerts = append(alerts, streakAlert(rec.Engagement.StreakDays, now))
	}

	// level progression
	var change *LevelChange
	if next, ok := NextLevel(prog.CurrentLevel, pct); ok {
		change = &LevelChange{Subject: subject, From: prog.CurrentLevel, To: next}
		prog.CurrentLevel = next
		msg := fmt.Sprintf("You reached %s level in %s", next, subject)
		alerts = append(alerts, newAlert(AlertLevelUp, subject, msg, now))
	}

	earned, achAlerts := evaluateAchievements(&rec, now)
	alerts = append(alerts, achAlerts...)

	finish(&rec, alerts, now)
	return QuizOutcome{Record: rec, Entry: entry, LevelChange: change, NewAchievements: earned, NewAlerts: alerts}, nil
}

// ApplyStudySession records a study session and updates engagement, streak and achievements.
func ApplyStudySession(rec StudentRecord, in NewStudySession, now time.Time) (SessionOutcome, error) {
	if in.DurationMinutes <= 0 {
		return SessionOutcome{}, invalid(ErrInvalidDuration, "duration_minutes")
	}

	rec = rec.Clone()
	session := StudySession{
		Subject:         core.CleanString(in.Subject),
		DurationMinutes: in.DurationMinutes,
		OccurredAt:      now.UTC(),
	}
	rec.Sessions = append(rec.Sessions, session)

	eng := &rec.Engagement
	eng.TotalTimeSpentMinutes += session.DurationMinutes
	eng.SessionsCount++
	eng.AverageSessionTime = eng.TotalTimeSpentMinutes / float64(eng.SessionsCount)
	eng.LastSessionAt = session.OccurredAt

	if session.Subject != "" {
		rec.SubjectProgress.Ensure(session.Subject).StudyTimeMinutes += session.DurationMinutes
	}

	var alerts []Alert
	if trackActivity(eng, now) {
		alerts = append(alerts, streakAlert(eng.StreakDays, now))
	}
	earned, achAlerts := evaluateAchievements(&rec, now)
	alerts = append(alerts, achAlerts...)

	finish(&rec, alerts, now)
	return SessionOutcome{Record: rec, Session: session, NewAchievements: earned, NewAlerts: alerts}, nil
}

func streakAlert(days int, now time.Time) Alert {
	return newAlert(AlertStreakMilestone, "", fmt.Sprintf("%d day learning streak!", days), now)
}

// finish appends alerts, drops expired recommendations and stamps the record.
func finish(rec *StudentRecord, alerts []Alert, now time.Time) {
	rec.Alerts = rec.Alerts.Append(MaxAlerts, alerts...)
	rec.Recommendations = pruneExpired(rec.Recommendations, now)
	rec.UpdatedAt = now.UTC()
}

func pruneExpired(recs BoundedList[Recommendation], now time.Time) BoundedList[Recommendation] {
	return recs.Filter(func(r Recommendation) bool { return r.ExpiresAt.After(now) })
}
