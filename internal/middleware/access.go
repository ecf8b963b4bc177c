package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/internal/service"
	"github.com/sitewand/sitewand-backend/pkg/jwt"
)

const accessContextKey = "accessContext"

// MagicTokenHeader carries a magic link bearer token
const MagicTokenHeader = "X-Magic-Token"

// EditAccess resolves the requester into an AccessContext before any
// interpreter or document work happens. Owners authenticate with a JWT
// session; collaborators with a magic link token scoped to the site in
// the URL. Neither yields 401.
func EditAccess(jwtManager *jwt.Manager, links service.MagicLinkService, sites func(siteID string) (ownerID string, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		siteID := c.Param("site_id")
		if siteID == "" {
			common.ErrorResponse(c, http.StatusBadRequest, "Site ID is required", nil)
			c.Abort()
			return
		}

		// Owner session first.
		if claims, err := verifyBearer(c, jwtManager); err == nil {
			ownerID, err := sites(siteID)
			if err != nil {
				status := http.StatusInternalServerError
				if errors.Is(err, common.ErrSiteNotFound) {
					status = http.StatusNotFound
				}
				common.ErrorResponse(c, status, "Site lookup failed", err)
				c.Abort()
				return
			}
			if ownerID != claims.UserID {
				common.ErrorResponse(c, http.StatusForbidden, "You do not own this site", nil)
				c.Abort()
				return
			}

			c.Set(accessContextKey, &domain.AccessContext{
				Type:         domain.AccessOwner,
				OwnerID:      claims.UserID,
				Capabilities: domain.OwnerCapabilities(),
			})
			c.Set("ownerID", claims.UserID)
			c.Next()
			return
		}

		// Magic link token second.
		token := c.GetHeader(MagicTokenHeader)
		if token != "" {
			link, err := links.Validate(siteID, token)
			if err != nil {
				msg := "Invalid magic link"
				if errors.Is(err, common.ErrLinkExpired) {
					msg = "Magic link has expired"
				}
				common.ErrorResponse(c, http.StatusUnauthorized, msg, err)
				c.Abort()
				return
			}

			c.Set(accessContextKey, &domain.AccessContext{
				Type:         domain.AccessMagicLink,
				Link:         link,
				Capabilities: link.Capabilities,
			})
			c.Next()
			return
		}

		common.ErrorResponse(c, http.StatusUnauthorized, "Owner session or magic link token required", nil)
		c.Abort()
	}
}

// GetAccessContext extracts the resolved access context
func GetAccessContext(c *gin.Context) *domain.AccessContext {
	v, exists := c.Get(accessContextKey)
	if !exists {
		return nil
	}
	if access, ok := v.(*domain.AccessContext); ok {
		return access
	}
	return nil
}
