package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
)

type analyticsApi struct {
	conf     *core.Config
	svc      *analytics.Service
	mailSvc  core.EmailService
	logger   core.Logger
	validate *validator.Validate
}

func registerAnalyticsAPI(g *echo.Group, jwt echo.MiddlewareFunc, api analyticsApi) {
	sg := g.Group("/students/:id", jwt, studentAccessMiddleware())
	sg.POST("", api.enroll)
	sg.GET("", api.retrieve)
	sg.POST("/quiz-results", api.recordQuizResult)
	sg.POST("/study-sessions", api.recordStudySession)
	sg.GET("/recommendations", api.recommendations)
	sg.GET("/adaptive-quiz", api.adaptiveQuiz)
	sg.POST("/study-plan", api.studyPlan)
	sg.GET("/streak", api.streak)
}

// queryInt reads an optional integer query param.
func queryInt(ctx echo.Context, name string) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: name, Error: "must be an integer"})
	}
	return n, nil
}

// Handlers

func (api *analyticsApi) enroll(ctx echo.Context) error {
	rec, err := api.svc.Enroll(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *analyticsApi) retrieve(ctx echo.Context) error {
	rec, err := api.svc.GetRecord(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting student record")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *analyticsApi) recordQuizResult(ctx echo.Context) error {
	var data analytics.NewQuizResult
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuizResult")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	out, err := api.svc.RecordQuizResult(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording quiz result")
	}
	api.notify(ctx, out)
	return ctx.JSON(http.StatusCreated, out)
}

func (api *analyticsApi) recordStudySession(ctx echo.Context) error {
	var data analytics.NewStudySession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudySession")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	out, err := api.svc.RecordStudySession(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "recording study session")
	}
	return ctx.JSON(http.StatusCreated, out)
}

// recommendations never fails on catalog outages: the student gets an empty list instead.
func (api *analyticsApi) recommendations(ctx echo.Context) error {
	limit, err := queryInt(ctx, "limit")
	if err != nil {
		return err
	}
	q := analytics.RecommendationQuery{Subject: ctx.QueryParam("subject"), Limit: limit}
	if err = q.Validate(api.validate); err != nil {
		return err
	}

	scored, err := api.svc.GetRecommendations(ctx.Request().Context(), ctx.Param("id"), q)
	if errors.Is(err, analytics.ErrUpstreamUnavailable) {
		api.logger.Warn("serving no recommendations", err, map[string]interface{}{"student_id": ctx.Param("id")})
		scored = []analytics.ScoredMaterial{}
	} else if err != nil {
		return errors.Wrap(err, "getting recommendations")
	}
	return ctx.JSON(http.StatusOK, scored)
}

func (api *analyticsApi) adaptiveQuiz(ctx echo.Context) error {
	count, err := queryInt(ctx, "count")
	if err != nil {
		return err
	}
	req := analytics.AdaptiveQuizRequest{
		Subject:     ctx.QueryParam("subject"),
		Count:       count,
		DefaultTier: analytics.Tier(ctx.QueryParam("default_tier")),
	}
	if err = req.Validate(api.validate); err != nil {
		return err
	}

	sel, err := api.svc.SelectAdaptiveQuestions(ctx.Request().Context(), ctx.Param("id"), req)
	if err != nil {
		return errors.Wrap(err, "selecting adaptive questions")
	}
	return ctx.JSON(http.StatusOK, sel)
}

func (api *analyticsApi) studyPlan(ctx echo.Context) error {
	var data analytics.StudyPlanRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudyPlanRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.GenerateStudyPlan(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "generating study plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *analyticsApi) streak(ctx echo.Context) error {
	summary, err := api.svc.ComputeStreakFromLedger(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing streak")
	}
	return ctx.JSON(http.StatusOK, summary)
}
