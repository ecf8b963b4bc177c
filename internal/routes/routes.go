package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sitewand/sitewand-backend/internal/handler"
	"github.com/sitewand/sitewand-backend/internal/middleware"
	"github.com/sitewand/sitewand-backend/internal/repository"
	"github.com/sitewand/sitewand-backend/internal/service"
	"github.com/sitewand/sitewand-backend/pkg/jwt"
)

// Setup configures all API routes
func Setup(
	router *gin.Engine,
	editHandler *handler.EditHandler,
	linkHandler *handler.MagicLinkHandler,
	pageHandler *handler.PageHandler,
	jwtManager *jwt.Manager,
	linkService service.MagicLinkService,
	siteRepo repository.SiteRepository,
	redisClient *redis.Client,
) {
	api := router.Group("/api/v1")

	siteOwner := func(siteID string) (string, error) {
		site, err := siteRepo.FindByID(siteID)
		if err != nil {
			return "", err
		}
		return site.OwnerID, nil
	}
	editAccess := middleware.EditAccess(jwtManager, linkService, siteOwner)

	sites := api.Group("/sites/:site_id")

	// Edit session protocol. Propose and apply are always two distinct
	// requests; propose carries a tighter rate limit because each call
	// costs an interpreter round trip.
	edit := sites.Group("/edit", editAccess)
	edit.POST("/propose",
		middleware.RateLimit(redisClient, middleware.ProposeRateLimitConfig()),
		editHandler.Propose)
	edit.POST("/apply", editHandler.Apply)

	edits := sites.Group("/edits", editAccess)
	edits.GET("", editHandler.History)
	edits.POST("/:edit_id/reject", editHandler.Reject)

	// Pages are readable by anyone holding edit access (owners and
	// magic link collaborators preview against them).
	pages := sites.Group("/pages", editAccess)
	pages.GET("", pageHandler.List)
	pages.GET("/:page_id", pageHandler.Get)
	pages.GET("/:page_id/revisions", pageHandler.Revisions)

	// Magic link management is owner-only.
	links := sites.Group("/links", middleware.JWTAuth(jwtManager))
	links.POST("", linkHandler.Create)
	links.GET("", linkHandler.List)
	links.DELETE("/:link_id", linkHandler.Revoke)
}
