package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/repository"
	"github.com/sitewand/sitewand-backend/pkg/cache"
	"github.com/sitewand/sitewand-backend/pkg/logger"
)

// PageHandler serves page content and revision history
type PageHandler struct {
	pages     repository.PageRepository
	revisions repository.RevisionRepository
	cache     cache.Service
}

// NewPageHandler creates a new PageHandler
func NewPageHandler(pages repository.PageRepository, revisions repository.RevisionRepository, cacheSvc cache.Service) *PageHandler {
	return &PageHandler{pages: pages, revisions: revisions, cache: cacheSvc}
}

// pageView is the serialized page shape, cached as-is
type pageView struct {
	ID      string          `json:"id"`
	SiteID  string          `json:"site_id"`
	Title   string          `json:"title"`
	Slug    string          `json:"slug"`
	Version uint            `json:"version"`
	Content json.RawMessage `json:"content"`
}

// List returns the pages of a site
// @Summary List pages
// @Tags pages
// @Produce json
// @Param site_id path string true "Site ID"
// @Success 200 {object} common.Response{data=[]domain.Page}
// @Security BearerAuth
// @Router /sites/{site_id}/pages [get]
func (h *PageHandler) List(c *gin.Context) {
	pages, err := h.pages.ListBySite(c.Param("site_id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to list pages", err)
		return
	}
	common.SuccessResponse(c, pages)
}

// Get returns one page with its current content, cache first
// @Summary Get a page
// @Tags pages
// @Produce json
// @Param site_id path string true "Site ID"
// @Param page_id path string true "Page ID"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/pages/{page_id} [get]
func (h *PageHandler) Get(c *gin.Context) {
	siteID := c.Param("site_id")
	pageID := c.Param("page_id")
	ctx := c.Request.Context()

	if data, err := h.cache.GetPage(ctx, siteID, pageID); err == nil {
		var view pageView
		if err := json.Unmarshal(data, &view); err == nil {
			common.SuccessResponse(c, view)
			return
		}
	}

	page, err := h.pages.FindByID(siteID, pageID)
	if err != nil {
		if errors.Is(err, common.ErrPageNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "Page not found", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load page", err)
		return
	}

	view := pageView{
		ID:      page.ID,
		SiteID:  page.SiteID,
		Title:   page.Title,
		Slug:    page.Slug,
		Version: page.Version,
		Content: json.RawMessage(page.Content),
	}

	if err := h.cache.SetPage(ctx, siteID, pageID, view); err != nil {
		logger.Get().Warn().Err(err).Str("page_id", pageID).Msg("failed to cache page")
	}

	common.SuccessResponse(c, view)
}

// Revisions lists a page's revision snapshots, newest first
// @Summary List page revisions
// @Tags pages
// @Produce json
// @Param site_id path string true "Site ID"
// @Param page_id path string true "Page ID"
// @Param limit query int false "Max revisions (default 20, max 100)"
// @Success 200 {object} common.Response{data=[]domain.PageRevision}
// @Failure 404 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/pages/{page_id}/revisions [get]
func (h *PageHandler) Revisions(c *gin.Context) {
	siteID := c.Param("site_id")
	pageID := c.Param("page_id")

	// Scope check: the page must belong to the site in the path
	if _, err := h.pages.FindByID(siteID, pageID); err != nil {
		if errors.Is(err, common.ErrPageNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "Page not found", err)
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load page", err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	revisions, err := h.revisions.FindByPageID(pageID, limit)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to list revisions", err)
		return
	}

	common.SuccessResponse(c, revisions)
}
