package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core/assistant"
)

type assistantApi struct {
	svc assistant.Service
}

func registerAssistantAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc assistant.Service) {
	api := assistantApi{svc: svc}

	ag := g.Group("/assistant", jwt)
	ag.POST("/tutor", api.tutor, studentMiddleware())
	ag.POST("/suggest-questions", api.suggestQuestions, teacherMiddleware())
}

// Handlers

func (api *assistantApi) tutor(ctx echo.Context) error {
	var data assistant.TutorRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TutorRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	reply, err := api.svc.TutorReply(ctx.Request().Context(), data)
	if err != nil {
		return assistantError(err)
	}
	return ctx.JSON(http.StatusOK, TutorResponse{Response: reply})
}

func (api *assistantApi) suggestQuestions(ctx echo.Context) error {
	var data assistant.SuggestQuestionsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SuggestQuestionsRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	suggestions, err := api.svc.SuggestQuestions(ctx.Request().Context(), data)
	if err != nil {
		return assistantError(err)
	}
	if suggestions == nil {
		suggestions = []assistant.SuggestedQuestion{}
	}
	return ctx.JSON(http.StatusOK, SuggestionsResponse{Suggestions: suggestions})
}

func assistantError(err error) error {
	switch errors.Cause(err) {
	case assistant.ErrUnavailable, assistant.ErrEmptyResponse:
		return echo.NewHTTPError(http.StatusBadGateway, assistant.ErrUnavailable.Error())
	case assistant.ErrBlocked:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, assistant.ErrBlocked.Error())
	}
	return err
}

type (
	TutorResponse struct {
		Response string `json:"response"`
	}

	SuggestionsResponse struct {
		Suggestions []assistant.SuggestedQuestion `json:"suggestions"`
	}
)
