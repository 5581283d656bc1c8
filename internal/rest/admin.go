package rest

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"shelfScout/business/bandit"
	"shelfScout/domain"
)

type (
	AdminHandler struct {
		service AdminService
		cfgRepo bandit.ConfigRepository
	}

	AdminService interface {
		RunAttributionBatch(ctx context.Context, windowHours int) (domain.AttributionResult, error)
		MergeIdentities(ctx context.Context, sessionID, userID string) error
		RebuildSimilarityIndex(ctx context.Context) (int, error)
	}

	attributionRequest struct {
		WindowHours int `json:"window_hours"`
	}

	mergeRequest struct {
		SessionID string `json:"session_id"`
		UserID    string `json:"user_id"`
	}
)

func NewAdminHandler(svc AdminService, cfgRepo bandit.ConfigRepository) *AdminHandler {
	return &AdminHandler{service: svc, cfgRepo: cfgRepo}
}

// POST /api/v1/admin/attribution/run
func (h *AdminHandler) RunAttribution(c echo.Context) error {
	var body attributionRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body: " + err.Error()})
	}

	res, err := h.service.RunAttributionBatch(c.Request().Context(), body.WindowHours)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// POST /api/v1/admin/identity/merge
func (h *AdminHandler) MergeIdentity(c echo.Context) error {
	var body mergeRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body: " + err.Error()})
	}

	if err := h.service.MergeIdentities(c.Request().Context(), body.SessionID, body.UserID); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// POST /api/v1/admin/similarity/rebuild
func (h *AdminHandler) RebuildIndex(c echo.Context) error {
	n, err := h.service.RebuildSimilarityIndex(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "indexed_books": n})
}

// GET /api/v1/admin/bandit/config?profile=default
func (h *AdminHandler) GetConfig(c echo.Context) error {
	profile := c.QueryParam("profile")
	if profile == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "profile is required"})
	}

	cfg, ok, err := h.cfgRepo.GetConfig(c.Request().Context(), profile)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "config not found"})
	}
	return c.JSON(http.StatusOK, cfg)
}

// PUT /api/v1/admin/bandit/config
func (h *AdminHandler) UpsertConfig(c echo.Context) error {
	var body domain.BanditConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body: " + err.Error()})
	}
	if body.Profile == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "profile is required"})
	}

	if err := h.cfgRepo.UpsertConfig(c.Request().Context(), body); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
