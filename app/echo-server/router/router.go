package router

import (
	"github.com/labstack/echo/v4"

	"shelfScout/internal/rest"
)

func SetupRecommendRoutes(api *echo.Group, handler *rest.RecommendHandler) {
	reco := api.Group("/recommendations")

	reco.GET("", handler.Select)
	reco.POST("/feedback", handler.Feedback)
	reco.GET("/stats", handler.Stats)
}

func SetupAdminRoutes(api *echo.Group, handler *rest.AdminHandler) {
	admin := api.Group("/admin")

	admin.POST("/attribution/run", handler.RunAttribution)
	admin.POST("/identity/merge", handler.MergeIdentity)
	admin.POST("/similarity/rebuild", handler.RebuildIndex)
	admin.GET("/bandit/config", handler.GetConfig)
	admin.PUT("/bandit/config", handler.UpsertConfig)
}
