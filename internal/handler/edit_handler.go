package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/internal/middleware"
	"github.com/sitewand/sitewand-backend/internal/service"
)

// EditHandler handles the natural-language edit session endpoints
type EditHandler struct {
	edits service.EditService
	audit *middleware.AuditLogger
}

// NewEditHandler creates a new EditHandler
func NewEditHandler(edits service.EditService, audit *middleware.AuditLogger) *EditHandler {
	return &EditHandler{edits: edits, audit: audit}
}

// ProposeRequest is the free-text edit request body
type ProposeRequest struct {
	Request string `json:"request" binding:"required,min=1,max=1000"`
	PageID  string `json:"pageId"`
}

// ApplyRequest confirms a previewed proposal
type ApplyRequest struct {
	PageID      string             `json:"pageId" binding:"required"`
	Operations  []domain.Operation `json:"operations" binding:"required"`
	EditID      string             `json:"editId"`
	BaseVersion uint               `json:"baseVersion"`
}

// RejectRequest declines a pending proposal
type RejectRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
}

// Propose handles an edit request
// @Summary Propose a content edit from a plain-language request
// @Description Calls the interpretation service and returns a previewable proposal. No content is changed.
// @Tags edit
// @Accept json
// @Produce json
// @Param site_id path string true "Site ID"
// @Param request body ProposeRequest true "Edit request"
// @Success 200 {object} common.Response{data=service.ProposeResult}
// @Failure 400 {object} common.Response
// @Failure 401 {object} common.Response
// @Failure 403 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/edit/propose [post]
func (h *EditHandler) Propose(c *gin.Context) {
	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Request text must be between 1 and 1000 characters", err)
		return
	}

	access := middleware.GetAccessContext(c)
	if access == nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "Access context missing", nil)
		return
	}

	result, err := h.edits.Propose(c.Request.Context(), access, c.Param("site_id"), service.ProposeInput{
		Request: req.Request,
		PageID:  req.PageID,
	})
	if err != nil {
		middleware.RecordInterpreterCall("error")
		h.handleEditError(c, err, "Failed to interpret edit request")
		return
	}

	if result.Proposal.Understood {
		middleware.RecordInterpreterCall("understood")
	} else {
		middleware.RecordInterpreterCall("not_understood")
	}

	common.SuccessResponse(c, result)
}

// Apply handles explicit confirmation of a proposal
// @Summary Apply previously proposed operations to a page
// @Description Applies the operations to the current stored document, bumps the version, and snapshots history.
// @Tags edit
// @Accept json
// @Produce json
// @Param site_id path string true "Site ID"
// @Param request body ApplyRequest true "Operations to apply"
// @Success 200 {object} common.Response{data=service.ApplyResult}
// @Failure 403 {object} common.Response
// @Failure 409 {object} common.Response
// @Failure 422 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/edit/apply [post]
func (h *EditHandler) Apply(c *gin.Context) {
	var req ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid apply request", err)
		return
	}

	access := middleware.GetAccessContext(c)
	if access == nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "Access context missing", nil)
		return
	}

	siteID := c.Param("site_id")
	result, err := h.edits.Apply(c.Request.Context(), access, siteID, service.ApplyInput{
		PageID:      req.PageID,
		Operations:  req.Operations,
		EditID:      req.EditID,
		BaseVersion: req.BaseVersion,
	})
	if err != nil {
		h.handleEditError(c, err, "Failed to apply edit")
		return
	}

	middleware.RecordEditApplied(string(access.Type))
	h.audit.Log(&middleware.AuditLog{
		ActorID:    access.EditorID(),
		ActorType:  string(access.Type),
		Action:     "edit_apply",
		Resource:   "page",
		ResourceID: result.PageID,
		SiteID:     siteID,
		ClientIP:   c.ClientIP(),
		RequestID:  c.GetString("request_id"),
	})

	common.SuccessResponse(c, result)
}

// Reject declines a pending proposal
// @Summary Reject a pending edit proposal
// @Tags edit
// @Accept json
// @Produce json
// @Param site_id path string true "Site ID"
// @Param edit_id path string true "Edit record ID"
// @Param request body RejectRequest false "Optional reason"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.Response
// @Failure 409 {object} common.Response
// @Security BearerAuth
// @Router /sites/{site_id}/edits/{edit_id}/reject [post]
func (h *EditHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid reject request", err)
		return
	}

	access := middleware.GetAccessContext(c)
	if access == nil {
		common.ErrorResponse(c, http.StatusUnauthorized, "Access context missing", nil)
		return
	}

	siteID := c.Param("site_id")
	editID := c.Param("edit_id")
	if err := h.edits.Reject(c.Request.Context(), access, siteID, editID, req.Reason); err != nil {
		h.handleEditError(c, err, "Failed to reject edit")
		return
	}

	h.audit.Log(&middleware.AuditLog{
		ActorID:    access.EditorID(),
		ActorType:  string(access.Type),
		Action:     "edit_reject",
		Resource:   "edit_record",
		ResourceID: editID,
		SiteID:     siteID,
		Details:    req.Reason,
		ClientIP:   c.ClientIP(),
		RequestID:  c.GetString("request_id"),
	})

	common.SuccessResponse(c, gin.H{"edit_id": editID, "status": domain.EditRejected})
}

// History lists edit records for a site
// @Summary List edit history
// @Tags edit
// @Produce json
// @Param site_id path string true "Site ID"
// @Param status query string false "Filter by status (pending/applied/rejected/expired)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} common.Response{data=[]domain.EditRecord}
// @Security BearerAuth
// @Router /sites/{site_id}/edits [get]
func (h *EditHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	status := domain.EditStatus(c.Query("status"))
	switch status {
	case "", domain.EditPending, domain.EditApplied, domain.EditRejected, domain.EditExpired:
	default:
		common.ErrorResponse(c, http.StatusBadRequest, "Unknown status filter", nil)
		return
	}

	records, total, err := h.edits.History(c.Param("site_id"), status, limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "Failed to load edit history", err)
		return
	}

	common.SuccessWithMeta(c, records, common.NewMeta(total, limit, offset))
}

// handleEditError maps pipeline errors onto the wire taxonomy
func (h *EditHandler) handleEditError(c *gin.Context, err error, fallback string) {
	var permErr *common.PermissionDeniedError
	var resErr *common.ResolutionError

	switch {
	case errors.As(err, &permErr):
		common.ErrorResponseCode(c, http.StatusForbidden, "PERMISSION_DENIED",
			"The requested changes are not permitted", permErr.Reasons)
	case errors.As(err, &resErr):
		common.ErrorResponseCode(c, http.StatusUnprocessableEntity, common.CodeResolutionError,
			"An operation could not be resolved against the current page", resErr.Error())
	case errors.Is(err, common.ErrStaleApply):
		common.ErrorResponseCode(c, http.StatusConflict, common.CodeStaleApply,
			"The page changed since this proposal was created; please propose again", nil)
	case errors.Is(err, common.ErrEditNotPending):
		common.ErrorResponse(c, http.StatusConflict, "This edit has already been resolved", err)
	case errors.Is(err, common.ErrSiteNotFound),
		errors.Is(err, common.ErrPageNotFound),
		errors.Is(err, common.ErrEditNotFound):
		common.ErrorResponse(c, http.StatusNotFound, "Resource not found", err)
	case errors.Is(err, common.ErrInvalidInput):
		common.ErrorResponse(c, http.StatusBadRequest, "Invalid input", err)
	default:
		common.ErrorResponse(c, http.StatusInternalServerError, fallback, err)
	}
}
