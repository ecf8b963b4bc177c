package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/content"
	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/internal/repository"
	"github.com/sitewand/sitewand-backend/pkg/cache"
	"github.com/sitewand/sitewand-backend/pkg/logger"
)

// ProposeInput is one free-text edit request
type ProposeInput struct {
	Request string
	PageID  string
}

// ProposalValidation reports whether the proposed operations resolve
// cleanly against the current document.
type ProposalValidation struct {
	Valid    bool     `json:"valid"`
	Warnings []string `json:"warnings"`
}

// ProposeResult is everything a caller needs to preview a proposal and
// decide whether to confirm it.
type ProposeResult struct {
	EditID      string               `json:"edit_id,omitempty"`
	PageID      string               `json:"page_id"`
	PageTitle   string               `json:"page_title"`
	BaseVersion uint                 `json:"base_version"`
	Proposal    *domain.EditProposal `json:"response"`
	Preview     *domain.Document     `json:"preview"`
	Original    *domain.Document     `json:"original"`
	Validation  ProposalValidation   `json:"validation"`
	DiffSummary []string             `json:"diff_summary"`
}

// ApplyInput confirms a proposal against the current stored document
type ApplyInput struct {
	PageID      string
	Operations  []domain.Operation
	EditID      string
	BaseVersion uint
}

// ApplyResult is the committed outcome of an apply
type ApplyResult struct {
	PageID  string          `json:"page_id"`
	Version uint            `json:"version"`
	Content domain.Document `json:"content"`
}

// EditService orchestrates the edit session protocol: interpreter call,
// capability screening, preview, and — on a separate explicit request —
// atomic application with version bump and audit snapshot. A proposal
// is never applied in the same request that produced it.
type EditService interface {
	Propose(ctx context.Context, access *domain.AccessContext, siteID string, input ProposeInput) (*ProposeResult, error)
	Apply(ctx context.Context, access *domain.AccessContext, siteID string, input ApplyInput) (*ApplyResult, error)
	Reject(ctx context.Context, access *domain.AccessContext, siteID, editID, reason string) error
	History(siteID string, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, int64, error)
}

type editService struct {
	sites   repository.SiteRepository
	pages   repository.PageRepository
	records repository.EditRecordRepository
	links   MagicLinkService
	gate    *GateService
	interp  Interpreter
	cache   cache.Service
}

// NewEditService creates a new EditService
func NewEditService(
	sites repository.SiteRepository,
	pages repository.PageRepository,
	records repository.EditRecordRepository,
	links MagicLinkService,
	gate *GateService,
	interp Interpreter,
	cacheSvc cache.Service,
) EditService {
	return &editService{
		sites:   sites,
		pages:   pages,
		records: records,
		links:   links,
		gate:    gate,
		interp:  interp,
		cache:   cacheSvc,
	}
}

func (s *editService) Propose(ctx context.Context, access *domain.AccessContext, siteID string, input ProposeInput) (*ProposeResult, error) {
	site, err := s.sites.FindByID(siteID)
	if err != nil {
		return nil, err
	}

	page, err := s.loadPage(siteID, input.PageID)
	if err != nil {
		return nil, err
	}

	doc, err := page.Document()
	if err != nil {
		return nil, fmt.Errorf("failed to decode page content: %w", err)
	}

	proposal, err := s.interp.Interpret(ctx, InterpretInput{
		Request:   input.Request,
		Document:  doc,
		SiteName:  site.Name,
		PageTitle: page.Title,
	})
	if err != nil {
		return nil, err
	}

	result := &ProposeResult{
		PageID:      page.ID,
		PageTitle:   page.Title,
		BaseVersion: page.Version,
		Proposal:    proposal,
		Original:    &doc,
		Preview:     &doc,
		Validation:  ProposalValidation{Valid: true, Warnings: []string{}},
		DiffSummary: []string{},
	}

	if !proposal.Understood {
		// Nothing to screen or preview; the caller sees the flag.
		return result, nil
	}

	// The gate screens the proposal before it may even be previewed.
	// Quota is not consumed or checked here; only an apply counts.
	decision, err := s.gate.Authorize(access, page.ID, proposal.Operations, proposal.RiskLevel, false)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &common.PermissionDeniedError{Reasons: decision.Reasons}
	}

	preview, warnings, err := content.Apply(doc, proposal.Operations)
	if err != nil {
		var resErr *common.ResolutionError
		if errors.As(err, &resErr) {
			result.Validation = ProposalValidation{
				Valid:    false,
				Warnings: []string{resErr.Error()},
			}
			return result, nil
		}
		return nil, err
	}

	result.Preview = &preview
	if warnings != nil {
		result.Validation.Warnings = warnings
	}
	result.DiffSummary = content.Summarize(doc, preview)

	// Audit row is best-effort at proposal time; a storage hiccup must
	// not fail an otherwise good proposal.
	record := s.buildRecord(access, site.ID, page, input.Request, proposal, preview)
	if err := s.records.Create(record); err != nil {
		logger.Get().Error().Err(err).
			Str("site_id", siteID).
			Str("page_id", page.ID).
			Msg("failed to create edit record")
	} else {
		result.EditID = record.ID
	}

	return result, nil
}

func (s *editService) Apply(ctx context.Context, access *domain.AccessContext, siteID string, input ApplyInput) (*ApplyResult, error) {
	page, err := s.pages.FindByID(siteID, input.PageID)
	if err != nil {
		return nil, err
	}

	// Optimistic concurrency: an apply computed against an older
	// version is refused rather than silently overwriting newer edits.
	if input.BaseVersion != 0 && input.BaseVersion != page.Version {
		if input.EditID != "" {
			_ = s.records.MarkExpired(input.EditID)
		}
		return nil, common.ErrStaleApply
	}

	var record *domain.EditRecord
	if input.EditID != "" {
		record, err = s.records.FindByID(input.EditID)
		if err != nil {
			return nil, err
		}
		if record.SiteID != siteID || record.PageID != page.ID {
			return nil, common.ErrEditNotFound
		}
		if record.Status != domain.EditPending {
			return nil, common.ErrEditNotPending
		}
		if record.BaseVersion != page.Version {
			_ = s.records.MarkExpired(record.ID)
			return nil, common.ErrStaleApply
		}
	}

	if len(input.Operations) == 0 {
		return nil, common.ErrInvalidInput
	}

	// Full gate run, quota included: only applied edits count against
	// a magic link's daily limit.
	risk := domain.RiskLow
	if record != nil && record.RiskLevel != "" {
		risk = domain.RiskLevel(record.RiskLevel)
	}
	decision, err := s.gate.Authorize(access, page.ID, input.Operations, risk, true)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &common.PermissionDeniedError{Reasons: decision.Reasons}
	}

	doc, err := page.Document()
	if err != nil {
		return nil, fmt.Errorf("failed to decode page content: %w", err)
	}

	newDoc, _, err := content.Apply(doc, input.Operations)
	if err != nil {
		return nil, err
	}

	revision := &domain.PageRevision{
		PageID:       page.ID,
		Version:      page.Version,
		ChangeType:   "ai_edit",
		Content:      page.Content,
		EditedBy:     access.EditorID(),
		EditedByType: string(access.Type),
	}

	page.Version++
	if err := page.SetDocument(newDoc); err != nil {
		return nil, err
	}
	if record != nil {
		after, encErr := encodeDocument(newDoc)
		if encErr == nil {
			record.ContentAfter = after
		}
	}

	if err := s.pages.CommitEdit(page, revision, record); err != nil {
		return nil, fmt.Errorf("failed to commit edit: %w", err)
	}

	if access.Type == domain.AccessMagicLink && access.Link != nil {
		if err := s.links.RecordUsage(access.Link); err != nil {
			logger.Get().Error().Err(err).
				Str("link_id", access.Link.ID).
				Msg("failed to record magic link usage")
		}
	}

	if err := s.cache.InvalidatePage(ctx, siteID, page.ID); err != nil {
		logger.Get().Warn().Err(err).
			Str("page_id", page.ID).
			Msg("failed to invalidate page cache")
	}

	logger.Get().Info().
		Str("site_id", siteID).
		Str("page_id", page.ID).
		Uint("version", page.Version).
		Str("access_type", string(access.Type)).
		Int("operations", len(input.Operations)).
		Msg("edit applied")

	return &ApplyResult{
		PageID:  page.ID,
		Version: page.Version,
		Content: newDoc,
	}, nil
}

func (s *editService) Reject(ctx context.Context, access *domain.AccessContext, siteID, editID, reason string) error {
	record, err := s.records.FindByID(editID)
	if err != nil {
		return err
	}
	if record.SiteID != siteID {
		return common.ErrEditNotFound
	}

	return s.records.MarkRejected(editID, reason)
}

func (s *editService) History(siteID string, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, int64, error) {
	return s.records.ListBySite(siteID, status, limit, offset)
}

func (s *editService) loadPage(siteID, pageID string) (*domain.Page, error) {
	if pageID != "" {
		return s.pages.FindByID(siteID, pageID)
	}
	return s.pages.FindFirstBySite(siteID)
}

func (s *editService) buildRecord(access *domain.AccessContext, siteID string, page *domain.Page, request string, proposal *domain.EditProposal, preview domain.Document) *domain.EditRecord {
	record := &domain.EditRecord{
		ID:             uuid.NewString(),
		SiteID:         siteID,
		PageID:         page.ID,
		AccessType:     string(access.Type),
		RequestText:    request,
		Interpretation: proposal.Interpretation,
		RiskLevel:      string(proposal.RiskLevel),
		Summary:        proposal.Summary,
		ContentBefore:  page.Content,
		BaseVersion:    page.Version,
		Status:         domain.EditPending,
		CreatedAt:      time.Now(),
	}

	if access.Type == domain.AccessMagicLink && access.Link != nil {
		linkID := access.Link.ID
		record.MagicLinkID = &linkID
	}

	if ops, err := domain.EncodeOperations(proposal.Operations); err == nil {
		record.Operations = ops
	}
	if after, err := encodeDocument(preview); err == nil {
		record.ContentAfter = after
	}

	return record
}

func encodeDocument(doc domain.Document) (string, error) {
	page := domain.Page{}
	if err := page.SetDocument(doc); err != nil {
		return "", err
	}
	return page.Content, nil
}
