package analytics

import "time"

const (
	AchievementPerfectScore      = "perfect-score"
	AchievementConsistentLearner = "consistent-learner"
	AchievementQuizMaster        = "quiz-master"
)

type achievementDef struct {
	ID    string
	Title string
	Check func(rec *StudentRecord) bool
}

var achievementDefs = []achievementDef{
	{
		ID:    AchievementPerfectScore,
		Title: "Perfect Score",
		Check: func(rec *StudentRecord) bool {
			for _, q := range rec.QuizScores {
				if q.MaxScore > 0 && q.Score == q.MaxScore {
					return true
				}
			}
			return false
		},
	},
	{
		ID:    AchievementConsistentLearner,
		Title: "Consistent Learner",
		Check: func(rec *StudentRecord) bool { return rec.Engagement.StreakDays >= 7 },
	},
	{
		ID:    AchievementQuizMaster,
		Title: "Quiz Master",
		Check: func(rec *StudentRecord) bool { return rec.Performance.QuizzesTaken >= 10 },
	},
}

// AchievementTitle returns the display name of an achievement id.
func AchievementTitle(id string) string {
	for _, def := range achievementDefs {
		if def.ID == id {
			return def.Title
		}
	}
	return id
}

// evaluateAchievements grants every newly satisfied achievement once, with its alert.
func evaluateAchievements(rec *StudentRecord, now time.Time) ([]Achievement, []Alert) {
	var earned []Achievement
	var alerts []Alert
	for _, def := range achievementDefs {
		if rec.Achievements.Has(def.ID) || !def.Check(rec) {
			continue
		}
		ach := Achievement{ID: def.ID, EarnedAt: now.UTC()}
		rec.Achievements = append(rec.Achievements, ach)
		earned = append(earned, ach)
		alerts = append(alerts, newAlert(AlertAchievement, "", "Achievement unlocked: "+def.Title, now))
	}
	return earned, alerts
}
