package echoapi

import (
	"net/mail"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
)

// notify e-mails students about their new badges & levels.
// Only students submitting their own results are notified: their address comes from the token.
func (api *analyticsApi) notify(ctx echo.Context, out analytics.QuizOutcome) {
	claims, err := getContextClaims(ctx)
	if err != nil || claims.Email == "" || claims.Subject != out.Record.StudentID {
		return
	}
	to := []mail.Address{{Name: claims.Name, Address: claims.Email}}

	var messages []*core.EmailMessage
	if len(out.NewAchievements) > 0 {
		titles := make([]string, 0, len(out.NewAchievements))
		for _, a := range out.NewAchievements {
			titles = append(titles, analytics.AchievementTitle(a.ID))
		}
		messages = append(messages, &core.EmailMessage{
			To:           to,
			Subject:      "You earned a new badge!",
			TemplateName: "achievement_earned",
			TemplateData: map[string]interface{}{"Name": claims.Name, "Achievements": titles},
		})
	}
	if lc := out.LevelChange; lc != nil {
		messages = append(messages, &core.EmailMessage{
			To:           to,
			Subject:      "Level up in " + lc.Subject,
			TemplateName: "level_up",
			TemplateData: map[string]interface{}{"Name": claims.Name, "Level": string(lc.To), "Subject": lc.Subject},
		})
	}
	if len(messages) > 0 {
		api.mailSvc.SendMessages(messages...)
	}
}
