package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
)

// --- Mock PageRepository ---

type mockPageRepo struct {
	mock.Mock
}

func (m *mockPageRepo) FindByID(siteID, pageID string) (*domain.Page, error) {
	args := m.Called(siteID, pageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

func (m *mockPageRepo) FindFirstBySite(siteID string) (*domain.Page, error) {
	args := m.Called(siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Page), args.Error(1)
}

func (m *mockPageRepo) ListBySite(siteID string) ([]*domain.Page, error) {
	args := m.Called(siteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Page), args.Error(1)
}

func (m *mockPageRepo) Create(page *domain.Page) error {
	return m.Called(page).Error(0)
}

func (m *mockPageRepo) CommitEdit(page *domain.Page, revision *domain.PageRevision, record *domain.EditRecord) error {
	return m.Called(page, revision, record).Error(0)
}

// --- Stub Interpreter ---

type stubInterpreter struct {
	proposal *domain.EditProposal
	err      error
}

func (s *stubInterpreter) Interpret(_ context.Context, _ InterpretInput) (*domain.EditProposal, error) {
	return s.proposal, s.err
}

// --- Stub MagicLinkService ---

type stubLinkService struct {
	usageRecorded []string
}

func (s *stubLinkService) Create(string, string, int, *domain.CapabilityOverrides) (*domain.MagicLink, string, error) {
	return nil, "", nil
}

func (s *stubLinkService) Validate(string, string) (*domain.MagicLink, error) {
	return nil, common.ErrLinkNotFound
}

func (s *stubLinkService) RecordUsage(link *domain.MagicLink) error {
	s.usageRecorded = append(s.usageRecorded, link.ID)
	return nil
}

func (s *stubLinkService) Revoke(string, string) error { return nil }

func (s *stubLinkService) ListBySite(string) ([]*domain.MagicLink, error) { return nil, nil }

// --- Stub cache ---

type stubCache struct {
	invalidated []string
}

func (s *stubCache) Get(context.Context, string, interface{}) error { return redis.Nil }
func (s *stubCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}
func (s *stubCache) Delete(context.Context, ...string) error { return nil }
func (s *stubCache) GetPage(context.Context, string, string) ([]byte, error) {
	return nil, redis.Nil
}
func (s *stubCache) SetPage(context.Context, string, string, interface{}) error { return nil }
func (s *stubCache) InvalidatePage(_ context.Context, _ string, pageID string) error {
	s.invalidated = append(s.invalidated, pageID)
	return nil
}
func (s *stubCache) InvalidateSitePages(context.Context, string) error { return nil }
func (s *stubCache) IsAvailable() bool                                 { return false }
func (s *stubCache) Ping(context.Context) error                        { return nil }

// --- Fixtures ---

func servicePage(t *testing.T, version uint) *domain.Page {
	t.Helper()
	page := &domain.Page{
		ID:      "page-1",
		SiteID:  "site-1",
		Title:   "Home",
		Version: version,
	}
	err := page.SetDocument(domain.Document{
		Sections: []domain.Section{
			{ID: "sec-hero", ComponentType: "hero", Order: 0,
				Props: map[string]interface{}{"headline": "Hello"}},
			{ID: "sec-footer", ComponentType: "footer", Order: 1,
				Props: map[string]interface{}{"copyright": "2026"}},
		},
	})
	require.NoError(t, err)
	return page
}

func ownerAccess() *domain.AccessContext {
	return &domain.AccessContext{
		Type:         domain.AccessOwner,
		OwnerID:      "owner-1",
		Capabilities: domain.OwnerCapabilities(),
	}
}

func headlineOp(value string) domain.Operation {
	return domain.Operation{
		Type:    domain.OpUpdate,
		Section: &domain.SectionRef{FindSection: "hero"},
		Path:    "props.headline",
		Value:   value,
	}
}

type editServiceFixture struct {
	sites   *mockSiteRepo
	pages   *mockPageRepo
	records *mockEditRecordRepo
	links   *stubLinkService
	cache   *stubCache
	svc     EditService
}

func newEditServiceFixture(interp Interpreter) *editServiceFixture {
	f := &editServiceFixture{
		sites:   new(mockSiteRepo),
		pages:   new(mockPageRepo),
		records: new(mockEditRecordRepo),
		links:   &stubLinkService{},
		cache:   &stubCache{},
	}
	f.svc = NewEditService(f.sites, f.pages, f.records, f.links, NewGateService(f.records), interp, f.cache)
	return f
}

func TestProposeNotUnderstood(t *testing.T) {
	interp := &stubInterpreter{proposal: &domain.EditProposal{
		Understood:     false,
		Interpretation: "The request does not relate to page content",
		RiskLevel:      domain.RiskLow,
	}}
	f := newEditServiceFixture(interp)

	f.sites.On("FindByID", "site-1").Return(&domain.Site{ID: "site-1", Name: "Roofers"}, nil)
	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 3), nil)

	result, err := f.svc.Propose(context.Background(), ownerAccess(), "site-1",
		ProposeInput{Request: "what is the weather", PageID: "page-1"})
	require.NoError(t, err)

	assert.False(t, result.Proposal.Understood)
	assert.Empty(t, result.EditID)
	assert.Equal(t, result.Original, result.Preview)
	f.records.AssertNotCalled(t, "Create", mock.Anything)
}

func TestProposePreviewsWithoutPersisting(t *testing.T) {
	interp := &stubInterpreter{proposal: &domain.EditProposal{
		Understood:     true,
		Interpretation: "Change the headline",
		Operations:     []domain.Operation{headlineOp("Welcome")},
		RiskLevel:      domain.RiskLow,
		Summary:        "Update the hero headline",
	}}
	f := newEditServiceFixture(interp)

	f.sites.On("FindByID", "site-1").Return(&domain.Site{ID: "site-1", Name: "Roofers"}, nil)
	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 3), nil)

	var created *domain.EditRecord
	f.records.On("Create", mock.AnythingOfType("*domain.EditRecord")).
		Run(func(args mock.Arguments) { created = args.Get(0).(*domain.EditRecord) }).
		Return(nil)

	result, err := f.svc.Propose(context.Background(), ownerAccess(), "site-1",
		ProposeInput{Request: "make the headline say Welcome", PageID: "page-1"})
	require.NoError(t, err)

	assert.Equal(t, uint(3), result.BaseVersion)
	assert.Equal(t, "Welcome", result.Preview.Sections[0].Props["headline"])
	assert.Equal(t, "Hello", result.Original.Sections[0].Props["headline"])
	assert.True(t, result.Validation.Valid)
	require.Len(t, result.DiffSummary, 1)
	assert.Contains(t, result.DiffSummary[0], "headline")

	// Pending audit row, but no content write.
	require.NotNil(t, created)
	assert.Equal(t, result.EditID, created.ID)
	assert.Equal(t, domain.EditPending, created.Status)
	assert.Equal(t, uint(3), created.BaseVersion)
	assert.Nil(t, created.MagicLinkID)
	f.pages.AssertNotCalled(t, "CommitEdit", mock.Anything, mock.Anything, mock.Anything)
}

func TestProposeDeniedByGate(t *testing.T) {
	interp := &stubInterpreter{proposal: &domain.EditProposal{
		Understood:     true,
		Interpretation: "Remove the footer",
		Operations: []domain.Operation{
			{Type: domain.OpRemoveSection, Section: &domain.SectionRef{FindSection: "footer"}},
		},
		RiskLevel: domain.RiskMedium,
		Summary:   "Remove the footer section",
	}}
	f := newEditServiceFixture(interp)

	f.sites.On("FindByID", "site-1").Return(&domain.Site{ID: "site-1"}, nil)
	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 1), nil)

	access := magicLinkAccess(domain.DefaultMagicLinkCapabilities())
	_, err := f.svc.Propose(context.Background(), access, "site-1",
		ProposeInput{Request: "remove the footer", PageID: "page-1"})

	var permErr *common.PermissionDeniedError
	require.ErrorAs(t, err, &permErr)
	require.Len(t, permErr.Reasons, 1)
	assert.Contains(t, permErr.Reasons[0], "removing sections")
	f.records.AssertNotCalled(t, "Create", mock.Anything)
}

func TestProposeUnresolvableOperationsMarkInvalid(t *testing.T) {
	interp := &stubInterpreter{proposal: &domain.EditProposal{
		Understood:     true,
		Interpretation: "Edit the pricing section",
		Operations: []domain.Operation{
			{Type: domain.OpUpdate, Section: &domain.SectionRef{FindSection: "pricing"},
				Path: "props.title", Value: "Plans"},
		},
		RiskLevel: domain.RiskLow,
		Summary:   "Rename the pricing title",
	}}
	f := newEditServiceFixture(interp)

	f.sites.On("FindByID", "site-1").Return(&domain.Site{ID: "site-1"}, nil)
	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 1), nil)

	result, err := f.svc.Propose(context.Background(), ownerAccess(), "site-1",
		ProposeInput{Request: "rename pricing", PageID: "page-1"})
	require.NoError(t, err)

	assert.False(t, result.Validation.Valid)
	require.Len(t, result.Validation.Warnings, 1)
	assert.Contains(t, result.Validation.Warnings[0], "pricing")
	assert.Empty(t, result.EditID)
}

func TestApplyStaleBaseVersion(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 5), nil)
	f.records.On("MarkExpired", "edit-1").Return(nil)

	_, err := f.svc.Apply(context.Background(), ownerAccess(), "site-1", ApplyInput{
		PageID:      "page-1",
		Operations:  []domain.Operation{headlineOp("Welcome")},
		EditID:      "edit-1",
		BaseVersion: 4,
	})

	assert.ErrorIs(t, err, common.ErrStaleApply)
	f.records.AssertCalled(t, "MarkExpired", "edit-1")
	f.pages.AssertNotCalled(t, "CommitEdit", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyStaleRecordVersion(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 5), nil)
	f.records.On("FindByID", "edit-1").Return(&domain.EditRecord{
		ID: "edit-1", SiteID: "site-1", PageID: "page-1",
		Status: domain.EditPending, BaseVersion: 4,
	}, nil)
	f.records.On("MarkExpired", "edit-1").Return(nil)

	_, err := f.svc.Apply(context.Background(), ownerAccess(), "site-1", ApplyInput{
		PageID:     "page-1",
		Operations: []domain.Operation{headlineOp("Welcome")},
		EditID:     "edit-1",
	})

	assert.ErrorIs(t, err, common.ErrStaleApply)
	f.records.AssertCalled(t, "MarkExpired", "edit-1")
}

func TestApplyResolvedRecordRefused(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 5), nil)
	f.records.On("FindByID", "edit-1").Return(&domain.EditRecord{
		ID: "edit-1", SiteID: "site-1", PageID: "page-1",
		Status: domain.EditApplied, BaseVersion: 5,
	}, nil)

	_, err := f.svc.Apply(context.Background(), ownerAccess(), "site-1", ApplyInput{
		PageID:     "page-1",
		Operations: []domain.Operation{headlineOp("x")},
		EditID:     "edit-1",
	})

	assert.ErrorIs(t, err, common.ErrEditNotPending)
}

func TestApplyEmptyOperations(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})
	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 1), nil)

	_, err := f.svc.Apply(context.Background(), ownerAccess(), "site-1", ApplyInput{
		PageID: "page-1",
	})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestApplyCommitsVersionBumpAndSnapshot(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	page := servicePage(t, 3)
	originalContent := page.Content

	f.pages.On("FindByID", "site-1", "page-1").Return(page, nil)

	var committedRevision *domain.PageRevision
	f.pages.On("CommitEdit", page, mock.AnythingOfType("*domain.PageRevision"), (*domain.EditRecord)(nil)).
		Run(func(args mock.Arguments) { committedRevision = args.Get(1).(*domain.PageRevision) }).
		Return(nil)

	result, err := f.svc.Apply(context.Background(), ownerAccess(), "site-1", ApplyInput{
		PageID:      "page-1",
		Operations:  []domain.Operation{headlineOp("Welcome")},
		BaseVersion: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, uint(4), result.Version)
	assert.Equal(t, "Welcome", result.Content.Sections[0].Props["headline"])

	// The revision snapshots the content as it was before the edit.
	require.NotNil(t, committedRevision)
	assert.Equal(t, uint(3), committedRevision.Version)
	assert.Equal(t, originalContent, committedRevision.Content)
	assert.Equal(t, "ai_edit", committedRevision.ChangeType)
	assert.Equal(t, "owner-1", committedRevision.EditedBy)

	assert.Equal(t, []string{"page-1"}, f.cache.invalidated)
}

func TestApplyMagicLinkRecordsUsageAndQuota(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	page := servicePage(t, 1)
	f.pages.On("FindByID", "site-1", "page-1").Return(page, nil)
	f.pages.On("CommitEdit", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.records.On("CountAppliedSince", "link-1", mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	caps := domain.DefaultMagicLinkCapabilities()
	access := magicLinkAccess(caps)

	_, err := f.svc.Apply(context.Background(), access, "site-1", ApplyInput{
		PageID:     "page-1",
		Operations: []domain.Operation{headlineOp("Welcome")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"link-1"}, f.links.usageRecorded)
	f.records.AssertCalled(t, "CountAppliedSince", "link-1", mock.AnythingOfType("time.Time"))
}

func TestApplyMagicLinkQuotaExceeded(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	f.pages.On("FindByID", "site-1", "page-1").Return(servicePage(t, 1), nil)

	caps := domain.DefaultMagicLinkCapabilities()
	caps.MaxEditsPerDay = 2
	access := magicLinkAccess(caps)

	f.records.On("CountAppliedSince", "link-1", mock.AnythingOfType("time.Time")).Return(int64(2), nil)

	_, err := f.svc.Apply(context.Background(), access, "site-1", ApplyInput{
		PageID:     "page-1",
		Operations: []domain.Operation{headlineOp("Welcome")},
	})

	var permErr *common.PermissionDeniedError
	require.ErrorAs(t, err, &permErr)
	assert.Contains(t, permErr.Reasons[0], "daily edit limit")
	assert.Empty(t, f.links.usageRecorded)
	f.pages.AssertNotCalled(t, "CommitEdit", mock.Anything, mock.Anything, mock.Anything)
}

func TestRejectChecksSiteScope(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	f.records.On("FindByID", "edit-1").Return(&domain.EditRecord{
		ID: "edit-1", SiteID: "other-site", Status: domain.EditPending,
	}, nil)

	err := f.svc.Reject(context.Background(), ownerAccess(), "site-1", "edit-1", "no thanks")
	assert.ErrorIs(t, err, common.ErrEditNotFound)
	f.records.AssertNotCalled(t, "MarkRejected", mock.Anything, mock.Anything)
}

func TestRejectMarksRecord(t *testing.T) {
	f := newEditServiceFixture(&stubInterpreter{})

	f.records.On("FindByID", "edit-1").Return(&domain.EditRecord{
		ID: "edit-1", SiteID: "site-1", Status: domain.EditPending,
	}, nil)
	f.records.On("MarkRejected", "edit-1", "too loud").Return(nil)

	require.NoError(t, f.svc.Reject(context.Background(), ownerAccess(), "site-1", "edit-1", "too loud"))
	f.records.AssertExpectations(t)
}
