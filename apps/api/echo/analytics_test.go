package echoapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
	emailsvc "github.com/trezcool/masomo-learn/services/email"
	testutil "github.com/trezcool/masomo-learn/tests"
)

func TestHome(t *testing.T) {
	app := setup(t)
	rec := app.do(http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Masomo Learn API!", rec.Body.String())
}

func TestStudentAccess(t *testing.T) {
	app := setup(t)
	ownToken := app.token(t, "s1", "", RoleStudent)
	otherToken := app.token(t, "s2", "", RoleStudent)
	teacherToken := app.token(t, "t1", "", RoleTeacher)
	adminToken := app.token(t, "a1", "", RoleAdmin)
	noRoleToken := app.token(t, "s1", "")

	app.do(http.MethodPost, "/v1/students/s1", ownToken)

	tests := []httpTest{
		{
			name:     "missing token",
			path:     "/v1/students/s1",
			wantCode: http.StatusUnauthorized,
			wantData: marshallObj(t, errMissingToken),
		},
		{
			name:     "invalid token",
			path:     "/v1/students/s1",
			token:    "not-a-jwt",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "other student",
			path:     "/v1/students/s1",
			token:    otherToken,
			wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "token without roles",
			path:     "/v1/students/s1",
			token:    noRoleToken,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "own record",
			path:     "/v1/students/s1",
			token:    ownToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "teacher",
			path:     "/v1/students/s1/streak",
			token:    teacherToken,
			wantCode: http.StatusOK,
		},
		{
			name:     "admin, unknown student",
			path:     "/v1/students/s9",
			token:    adminToken,
			wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: analytics.ErrRecordNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, tt.path, tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestEnroll(t *testing.T) {
	app := setup(t)
	token := app.token(t, "s1", "", RoleStudent)

	rec := app.do(http.MethodPost, "/v1/students/s1", token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var record analytics.StudentRecord
	unmarshall(t, rec, &record)
	assert.Equal(t, "s1", record.StudentID)
	assert.Equal(t, int64(1), record.Version)
	assert.Empty(t, record.QuizScores)

	t.Run("twice returns the same record", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/students/s1", token)
		require.Equal(t, http.StatusCreated, rec.Code)

		var again analytics.StudentRecord
		unmarshall(t, rec, &again)
		assert.Equal(t, record.Version, again.Version)
		assert.True(t, record.CreatedAt.Equal(again.CreatedAt))
	})
}

func TestRecordQuizResult(t *testing.T) {
	app := setup(t)
	token := app.token(t, "s1", "amani@masomo.test", RoleStudent)
	path := "/v1/students/s1/quiz-results"

	t.Run("unknown student", func(t *testing.T) {
		rec := app.do(http.MethodPost, path, token, []byte(`{"subject":"Algebra","score":50,"max_score":100,"difficulty":"low"}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	app.do(http.MethodPost, "/v1/students/s1", token)

	invalidTests := []httpTest{
		{
			name:     "empty body",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"subject": "this field is required",
				"max_score": "this field is required",
				"difficulty": "this field is required"
			}`),
		},
		{
			name:     "blank subject, bad tier",
			body:     []byte(`{"subject":"  ","score":5,"max_score":10,"difficulty":"extreme"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{
				"subject": "this field cannot be blank",
				"difficulty": "must be one of low, medium, high"
			}`),
		},
		{
			name:     "score above max",
			body:     []byte(`{"subject":"Algebra","score":150,"max_score":100,"difficulty":"low"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"score": analytics.ErrInvalidScore.Error()}),
		},
		{
			name:     "negative max score",
			body:     []byte(`{"subject":"Algebra","score":0,"max_score":-10,"difficulty":"low"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"max_score": analytics.ErrInvalidScore.Error()}),
		},
	}
	for _, tt := range invalidTests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodPost, path, token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("perfect score", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		rec := app.do(http.MethodPost, path, token, []byte(`{"subject":"Algebra","score":100,"max_score":100,"time_spent_minutes":12,"difficulty":"High"}`))
		require.Equal(t, http.StatusCreated, rec.Code)

		var out analytics.QuizOutcome
		unmarshall(t, rec, &out)
		assert.Equal(t, analytics.TierHigh, out.Entry.Difficulty)
		assert.Equal(t, 1, out.Record.Performance.QuizzesTaken)
		assert.Equal(t, int64(2), out.Record.Version)
		require.NotNil(t, out.LevelChange)
		assert.Equal(t, analytics.LevelChange{Subject: "Algebra", From: analytics.LevelBeginner, To: analytics.LevelIntermediate}, *out.LevelChange)
		require.Len(t, out.NewAchievements, 1)
		assert.Equal(t, analytics.AchievementPerfectScore, out.NewAchievements[0].ID)

		// the record is untouched by the rejected submissions above
		assert.Len(t, out.Record.QuizScores, 1)

		require.Len(t, emailsvc.SentMessages, 2)
		assert.Equal(t, "achievement_earned", emailsvc.SentMessages[0].TemplateName)
		assert.Equal(t, "level_up", emailsvc.SentMessages[1].TemplateName)
		assert.Equal(t, "amani@masomo.test", emailsvc.SentMessages[0].To[0].Address)
	})

	t.Run("teachers submissions send no email", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		teacherToken := app.token(t, "t1", "teacher@masomo.test", RoleTeacher)
		rec := app.do(http.MethodPost, path, teacherToken, []byte(`{"subject":"Biology","score":100,"max_score":100,"difficulty":"low"}`))
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Empty(t, emailsvc.SentMessages)
	})
}

func TestStudySessionsAndStreak(t *testing.T) {
	app := setup(t)
	token := app.token(t, "s1", "", RoleStudent)
	app.do(http.MethodPost, "/v1/students/s1", token)

	tt := httpTest{
		name:     "missing duration",
		body:     []byte(`{"subject":"Algebra"}`),
		wantCode: http.StatusBadRequest,
		wantData: []byte(`{"duration_minutes": "this field is required"}`),
	}
	checkCodeAndData(t, tt, app.do(http.MethodPost, "/v1/students/s1/study-sessions", token, tt.body))

	for i := 0; i < 3; i++ {
		rec := app.do(http.MethodPost, "/v1/students/s1/study-sessions", token, []byte(`{"subject":"Algebra","duration_minutes":20}`))
		require.Equal(t, http.StatusCreated, rec.Code)
		app.clock.AddDays(1)
	}

	rec := app.do(http.MethodGet, "/v1/students/s1/streak", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary analytics.StreakSummary
	unmarshall(t, rec, &summary)
	assert.Equal(t, "s1", summary.StudentID)
	assert.Equal(t, 3, summary.StreakDays)
	assert.Equal(t, 3, summary.LedgerStreak)
	assert.Equal(t, 3, summary.LongestStreak)
}

func TestRecommendations(t *testing.T) {
	app := setup(t)
	token := app.token(t, "s1", "", RoleStudent)
	app.do(http.MethodPost, "/v1/students/s1", token)

	day := testutil.Now.AddDate(0, 0, -1)
	app.db.SeedMaterials(
		testutil.Material("m1", "Algebra", analytics.TierLow, 10, day),
		testutil.Material("m2", "Algebra", analytics.TierLow, 500, day),
		testutil.Material("m3", "Biology", analytics.TierHigh, 50, day),
	)

	t.Run("invalid limit", func(t *testing.T) {
		tests := []httpTest{
			{
				name:     "not an integer",
				path:     "/v1/students/s1/recommendations?limit=ten",
				wantCode: http.StatusBadRequest,
				wantData: []byte(`{"limit": "must be an integer"}`),
			},
			{
				name:     "too large",
				path:     "/v1/students/s1/recommendations?limit=1000",
				wantCode: http.StatusBadRequest,
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				checkCodeAndData(t, tt, app.do(http.MethodGet, tt.path, token))
			})
		}
	})

	t.Run("ranked", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/students/s1/recommendations?subject=algebra&limit=5", token)
		require.Equal(t, http.StatusOK, rec.Code)

		var got []analytics.ScoredMaterial
		unmarshall(t, rec, &got)
		require.Len(t, got, 2)
		assert.Equal(t, "m2", got[0].Material.ID)
		assert.GreaterOrEqual(t, got[0].Score, got[1].Score)

		rec = app.do(http.MethodGet, "/v1/students/s1", token)
		var record analytics.StudentRecord
		unmarshall(t, rec, &record)
		assert.Len(t, record.Recommendations, 2)
	})

	t.Run("catalog down", func(t *testing.T) {
		down := setup(t, true)
		token := down.token(t, "s1", "", RoleStudent)
		down.do(http.MethodPost, "/v1/students/s1", token)

		rec := down.do(http.MethodGet, "/v1/students/s1/recommendations", token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())

		entries := down.logger.Entries()
		require.Len(t, entries, 1)
		assert.Equal(t, "warn", entries[0].Level)
		assert.Equal(t, "serving no recommendations", entries[0].Msg)
	})
}

func TestAdaptiveQuiz(t *testing.T) {
	app := setup(t)
	token := app.token(t, "s1", "", RoleStudent)
	app.do(http.MethodPost, "/v1/students/s1", token)
	app.db.SeedQuestions(testutil.Questions("Geometry", map[analytics.Tier]int{
		analytics.TierLow:    3,
		analytics.TierMedium: 5,
		analytics.TierHigh:   3,
	})...)

	tests := []httpTest{
		{
			name:     "missing subject",
			path:     "/v1/students/s1/adaptive-quiz",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"subject": "this field is required"}`),
		},
		{
			name:     "bad default tier",
			path:     "/v1/students/s1/adaptive-quiz?subject=Geometry&default_tier=hard",
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"default_tier": "must be one of low, medium, high"}`),
		},
		{
			name:     "no questions",
			path:     "/v1/students/s1/adaptive-quiz?subject=Chemistry",
			wantCode: http.StatusUnprocessableEntity,
			wantData: marshallObj(t, httpErr{Error: analytics.ErrNoQuestionsAvailable.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodGet, tt.path, token))
		})
	}

	t.Run("no history", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/v1/students/s1/adaptive-quiz?subject=Geometry&count=8&default_tier=Medium", token)
		require.Equal(t, http.StatusOK, rec.Code)

		var sel analytics.AdaptiveSelection
		unmarshall(t, rec, &sel)
		assert.Equal(t, analytics.TierMedium, sel.Tier)
		assert.Len(t, sel.Questions, 8)
		for _, q := range sel.Questions {
			assert.NotEqual(t, analytics.TierLow, q.Difficulty)
		}
	})

	t.Run("question bank down", func(t *testing.T) {
		down := setup(t, true)
		token := down.token(t, "s1", "", RoleStudent)
		down.do(http.MethodPost, "/v1/students/s1", token)

		tt := httpTest{
			wantCode: http.StatusServiceUnavailable,
			wantData: marshallObj(t, httpErr{Error: analytics.ErrUpstreamUnavailable.Error()}),
		}
		checkCodeAndData(t, tt, down.do(http.MethodGet, "/v1/students/s1/adaptive-quiz?subject=Geometry", token))
	})
}

func TestStudyPlan(t *testing.T) {
	app := setup(t)
	token := app.token(t, "s1", "", RoleStudent)
	path := "/v1/students/s1/study-plan"
	app.do(http.MethodPost, "/v1/students/s1", token)

	tests := []httpTest{
		{
			name:     "missing budget",
			body:     []byte(`{"subjects":["Algebra"]}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"daily_budget_minutes": "this field is required"}`),
		},
		{
			name:     "negative budget",
			body:     []byte(`{"daily_budget_minutes":-30}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "no subjects nor history",
			body:     []byte(`{"daily_budget_minutes":60}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"subjects": analytics.ErrNoSubjects.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodPost, path, token, tt.body))
		})
	}

	t.Run("from history", func(t *testing.T) {
		app.do(http.MethodPost, "/v1/students/s1/quiz-results", token, []byte(`{"subject":"Algebra","score":40,"max_score":100,"difficulty":"low"}`))
		app.do(http.MethodPost, "/v1/students/s1/quiz-results", token, []byte(`{"subject":"Biology","score":90,"max_score":100,"difficulty":"low"}`))

		rec := app.do(http.MethodPost, path, token, []byte(`{"daily_budget_minutes":60}`))
		require.Equal(t, http.StatusOK, rec.Code)

		var plan analytics.StudyPlan
		unmarshall(t, rec, &plan)
		assert.Equal(t, "s1", plan.StudentID)
		assert.Equal(t, 420.0, plan.TotalStudyTime)
		require.Len(t, plan.Subjects, 2)
		assert.Equal(t, "Biology", plan.Subjects[0].Subject)
		assert.Equal(t, "Algebra", plan.Subjects[1].Subject)
	})
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", errors.Wrap(analytics.ErrRecordNotFound, "loading"), http.StatusNotFound},
		{"conflict", errors.Wrap(analytics.ErrConflict, "saving"), http.StatusConflict},
		{"no questions", analytics.ErrNoQuestionsAvailable, http.StatusUnprocessableEntity},
		{"upstream", &analytics.UpstreamError{Op: "loading", Err: errors.New("timeout")}, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestErrorHandler(t *testing.T) {
	app := setup(t)
	handler := app.server.app.HTTPErrorHandler

	newCtx := func() (echo.Context, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		return app.server.app.NewContext(req, rec), rec
	}

	t.Run("server error", func(t *testing.T) {
		ctx, rec := newCtx()
		handler(errors.New("boom"), ctx)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error": "Internal Server Error"}`, rec.Body.String())
		select {
		case <-app.server.ShutdownSignal():
			t.Error("unexpected shutdown signal")
		default:
		}
	})

	t.Run("shutdown error", func(t *testing.T) {
		ctx, rec := newCtx()
		handler(errors.Wrap(core.NewShutdownError("integrity issue"), "saving"), ctx)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		select {
		case <-app.server.ShutdownSignal():
		default:
			t.Error("shutdown was not signaled")
		}
	})

	t.Run("upstream error hides the cause", func(t *testing.T) {
		ctx, rec := newCtx()
		handler(&analytics.UpstreamError{Op: "loading", Err: errors.New("dial tcp: refused")}, ctx)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.False(t, strings.Contains(rec.Body.String(), "refused"))
	})
}
