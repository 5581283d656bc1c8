package rest

import (
	"context"
	"net/http"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"shelfScout/domain"
)

type (
	RecommendHandler struct {
		validate *validator.Validate
		service  RecommendService
	}

	RecommendService interface {
		SelectRecommendation(ctx context.Context, reqCtx domain.RequestContext, candidates []domain.Book, identity domain.Identity, n int) (domain.SelectResult, error)
		RecordInteraction(ctx context.Context, identity domain.Identity, bookID uint64, actionType string, value float64) (string, error)
		GetArmStatistics(ctx context.Context) (domain.ArmStatistics, error)
	}

	RecommendQuery struct {
		Mood      string `query:"mood"`
		Situation string `query:"situation"`
		Goal      string `query:"goal"`
		TimeOfDay string `query:"time_of_day"`
		N         int    `query:"n"`
	}

	FeedbackRequest struct {
		BookID     uint64  `json:"book_id" validate:"required"`
		ActionType string  `json:"action_type" validate:"required,oneof=click save unsave rate"`
		Value      float64 `json:"value"`
	}
)

func NewRecommendHandler(svc RecommendService) *RecommendHandler {
	return &RecommendHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// GET /api/v1/recommendations?mood=curious&goal=learn&n=10
func (h *RecommendHandler) Select(c echo.Context) error {
	identity, ok := identityFromEcho(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "X-User-ID or X-Session-ID header required"})
	}

	var q RecommendQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	result, err := h.service.SelectRecommendation(
		c.Request().Context(),
		domain.RequestContext{
			Mood:      q.Mood,
			Situation: q.Situation,
			Goal:      q.Goal,
			TimeOfDay: q.TimeOfDay,
		},
		nil,
		identity,
		q.N,
	)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

// POST /api/v1/recommendations/feedback
func (h *RecommendHandler) Feedback(c echo.Context) error {
	identity, ok := identityFromEcho(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "X-User-ID or X-Session-ID header required"})
	}

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	id, err := h.service.RecordInteraction(
		c.Request().Context(),
		identity,
		req.BookID,
		req.ActionType,
		req.Value,
	)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(echo.Map{"action_id": id}))
}

// GET /api/v1/recommendations/stats
func (h *RecommendHandler) Stats(c echo.Context) error {
	stats, err := h.service.GetArmStatistics(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(stats))
}

// identityFromEcho reads the identity the middleware extracted.
func identityFromEcho(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get("identity").(domain.Identity)
	if !ok || id.IsZero() {
		return domain.Identity{}, false
	}
	return id, true
}
