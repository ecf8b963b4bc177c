package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/internal/middleware"
	"github.com/sitewand/sitewand-backend/internal/repository"
	"github.com/sitewand/sitewand-backend/internal/service"
)

// MagicLinkHandler handles magic link management. All endpoints are
// owner-only; the raw token is returned exactly once, at creation.
type MagicLinkHandler struct {
	links service.MagicLinkService
	sites repository.SiteRepository
	audit *middleware.AuditLogger
}

// NewMagicLinkHandler creates a new MagicLinkHandler
func NewMagicLinkHandler(links service.MagicLinkService, sites repository.SiteRepository, audit *middleware.AuditLogger) *MagicLinkHandler {
	return &MagicLinkHandler{links: links, sites: sites, audit: audit}
}

// CreateLinkRequest is the link creation body
type CreateLinkRequest struct {
	Label         string                      `json:"label" binding:"max=100"`
	ExpiresInDays int                         `json:"expiresInDays" binding:"min=0,max=365"`
	Capabilities  *domain.CapabilityOverrides `json:"capabilities"`
}

// CreateLinkResponse carries the one-time raw token alongside the link
type CreateLinkResponse struct {
	Link  *domain.MagicLink `json:"link"`
	Token string            `json:"token"`
}

// Create issues a new magic link for a site
// @Summary Create a magic link
// @Description Issues a scoped edit link. The token field in the response is shown only once and cannot be recovered later.
// @Tags magic-links
// @Accept json
// @Produce json
// @Param site_id path string true "Site ID"
// @Param request body CreateLinkRequest true "Link settings"
// @Success 201 {object} common.Response{data=CreateLinkResponse}
// @Failure 403 {object} common.Response
// @Failure 404 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/links [post]
func (h *MagicLinkHandler) Create(c *gin.Context) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid link request", err)
		return
	}

	siteID := c.Param("site_id")
	ownerID := middleware.GetOwnerID(c)
	if !h.ownsSite(c, siteID, ownerID) {
		return
	}

	link, token, err := h.links.Create(siteID, req.Label, req.ExpiresInDays, req.Capabilities)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to create magic link", err)
		return
	}

	h.audit.Log(&middleware.AuditLog{
		ActorID:    ownerID,
		ActorType:  string(domain.AccessOwner),
		Action:     "link_create",
		Resource:   "magic_link",
		ResourceID: link.ID,
		SiteID:     siteID,
		Details:    req.Label,
		ClientIP:   c.ClientIP(),
		RequestID:  c.GetString("request_id"),
	})

	common.CreatedResponse(c, CreateLinkResponse{Link: link, Token: token})
}

// List returns a site's magic links, active and revoked alike.
// Token hashes are never serialized.
// @Summary List magic links for a site
// @Tags magic-links
// @Produce json
// @Param site_id path string true "Site ID"
// @Success 200 {object} common.Response{data=[]domain.MagicLink}
// @Failure 403 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/links [get]
func (h *MagicLinkHandler) List(c *gin.Context) {
	siteID := c.Param("site_id")
	if !h.ownsSite(c, siteID, middleware.GetOwnerID(c)) {
		return
	}

	links, err := h.links.ListBySite(siteID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to list magic links", err)
		return
	}

	common.SuccessResponse(c, links)
}

// Revoke deactivates a magic link. Revocation is one-way; a revoked
// link cannot be reactivated.
// @Summary Revoke a magic link
// @Tags magic-links
// @Produce json
// @Param site_id path string true "Site ID"
// @Param link_id path string true "Magic link ID"
// @Success 200 {object} common.Response
// @Failure 403 {object} common.Response
// @Failure 404 {object} common.Response
// @Failure 409 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/links/{link_id} [delete]
func (h *MagicLinkHandler) Revoke(c *gin.Context) {
	siteID := c.Param("site_id")
	linkID := c.Param("link_id")
	ownerID := middleware.GetOwnerID(c)

	err := h.links.Revoke(linkID, ownerID)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrLinkNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Magic link not found", err)
		return
	case errors.Is(err, common.ErrForbidden):
		common.ErrorResponse(c, http.StatusForbidden, "Only the site owner can revoke this link", err)
		return
	case errors.Is(err, common.ErrLinkRevoked):
		common.ErrorResponse(c, http.StatusConflict, "This link is already revoked", err)
		return
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to revoke magic link", err)
		return
	}

	h.audit.Log(&middleware.AuditLog{
		ActorID:    ownerID,
		ActorType:  string(domain.AccessOwner),
		Action:     "link_revoke",
		Resource:   "magic_link",
		ResourceID: linkID,
		SiteID:     siteID,
		ClientIP:   c.ClientIP(),
		RequestID:  c.GetString("request_id"),
	})

	common.SuccessResponse(c, gin.H{"link_id": linkID, "active": false})
}

// ownsSite verifies the authenticated owner owns the site, writing the
// error response itself when not.
func (h *MagicLinkHandler) ownsSite(c *gin.Context, siteID, ownerID string) bool {
	site, err := h.sites.FindByID(siteID)
	if errors.Is(err, common.ErrSiteNotFound) {
		common.ErrorResponse(c, http.StatusNotFound, "Site not found", err)
		return false
	}
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load site", err)
		return false
	}
	if site.OwnerID != ownerID {
		common.ErrorResponse(c, http.StatusForbidden, "You do not own this site", nil)
		return false
	}
	return true
}
