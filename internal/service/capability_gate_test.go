package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sitewand/sitewand-backend/internal/domain"
)

// --- Mock EditRecordRepository ---

type mockEditRecordRepo struct {
	mock.Mock
}

func (m *mockEditRecordRepo) Create(record *domain.EditRecord) error {
	return m.Called(record).Error(0)
}

func (m *mockEditRecordRepo) FindByID(id string) (*domain.EditRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EditRecord), args.Error(1)
}

func (m *mockEditRecordRepo) ListBySite(siteID string, status domain.EditStatus, limit, offset int) ([]*domain.EditRecord, int64, error) {
	args := m.Called(siteID, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.EditRecord), args.Get(1).(int64), args.Error(2)
}

func (m *mockEditRecordRepo) MarkRejected(id, reason string) error {
	return m.Called(id, reason).Error(0)
}

func (m *mockEditRecordRepo) MarkExpired(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockEditRecordRepo) CountAppliedSince(magicLinkID string, since time.Time) (int64, error) {
	args := m.Called(magicLinkID, since)
	return args.Get(0).(int64), args.Error(1)
}

func intRef(i int) *int { return &i }

func magicLinkAccess(caps domain.CapabilitySet) *domain.AccessContext {
	return &domain.AccessContext{
		Type:         domain.AccessMagicLink,
		Link:         &domain.MagicLink{ID: "link-1", SiteID: "site-1"},
		Capabilities: caps,
	}
}

func TestCheckOperationsDeniesSectionChangesForDefaultLink(t *testing.T) {
	caps := domain.DefaultMagicLinkCapabilities()

	reasons := CheckOperations(caps, []domain.Operation{
		{Type: domain.OpUpdate, Section: &domain.SectionRef{Index: intRef(0)}, Path: "props.headline", Value: "ok"},
		{Type: domain.OpAddSection, Position: intRef(0), ComponentType: "faq"},
		{Type: domain.OpRemoveSection, Section: &domain.SectionRef{Index: intRef(1)}},
	})

	require.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "operation 1")
	assert.Contains(t, reasons[0], "adding sections")
	assert.Contains(t, reasons[1], "operation 2")
	assert.Contains(t, reasons[1], "removing sections")
}

func TestCheckOperationsClassifiesFields(t *testing.T) {
	caps := domain.CapabilitySet{CanEditText: true, CanEditColors: false, CanEditImages: false}

	reasons := CheckOperations(caps, []domain.Operation{
		{Type: domain.OpUpdate, Section: &domain.SectionRef{Index: intRef(0)}, Path: "props.backgroundColor", Value: "#fff"},
		{Type: domain.OpUpdate, Section: &domain.SectionRef{Index: intRef(0)}, Path: "props.heroImage", Value: "/x.jpg"},
		{Type: domain.OpUpdate, Section: &domain.SectionRef{Index: intRef(0)}, Path: "props.headline", Value: "ok"},
	})

	require.Len(t, reasons, 2)
	assert.Contains(t, reasons[0], "colors")
	assert.Contains(t, reasons[1], "images")
}

func TestCheckOperationsUpdateItemUsesFieldName(t *testing.T) {
	caps := domain.CapabilitySet{CanEditText: true, CanEditImages: false}

	reasons := CheckOperations(caps, []domain.Operation{
		{Type: domain.OpUpdateItem, Section: &domain.SectionRef{Index: intRef(0)},
			Path: "props.team", ItemIndex: intRef(0), Field: "photoUrl", Value: "/p.jpg"},
	})

	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "images")
}

func TestCheckOperationsReorderNeedsNoExtraGrant(t *testing.T) {
	caps := domain.CapabilitySet{CanEditText: false}
	reasons := CheckOperations(caps, []domain.Operation{
		{Type: domain.OpReorder, FromIndex: intRef(0), ToIndex: intRef(1)},
	})
	assert.Empty(t, reasons)
}

func TestCheckRiskVetoesHighRiskWhenApprovalRequired(t *testing.T) {
	caps := domain.DefaultMagicLinkCapabilities()

	assert.Empty(t, CheckRisk(caps, domain.RiskLow))
	assert.Empty(t, CheckRisk(caps, domain.RiskMedium))
	assert.Len(t, CheckRisk(caps, domain.RiskHigh), 1)

	// Owners are never vetoed.
	assert.Empty(t, CheckRisk(domain.OwnerCapabilities(), domain.RiskHigh))
}

func TestCheckPageScope(t *testing.T) {
	caps := domain.CapabilitySet{AllowedPages: []string{"page-1", "page-2"}}
	assert.Empty(t, CheckPage(caps, "page-2"))
	assert.Len(t, CheckPage(caps, "page-9"), 1)

	unrestricted := domain.CapabilitySet{}
	assert.Empty(t, CheckPage(unrestricted, "anything"))
}

func TestAuthorizeQuotaExhausted(t *testing.T) {
	records := new(mockEditRecordRepo)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	gate := NewGateService(records)
	gate.now = func() time.Time { return now }

	caps := domain.DefaultMagicLinkCapabilities()
	caps.MaxEditsPerDay = 2
	access := magicLinkAccess(caps)

	records.On("CountAppliedSince", "link-1", now.Add(-24*time.Hour)).Return(int64(2), nil)

	decision, err := gate.Authorize(access, "page-1", []domain.Operation{
		{Type: domain.OpUpdate, Section: &domain.SectionRef{Index: intRef(0)}, Path: "props.headline", Value: "x"},
	}, domain.RiskLow, true)
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	require.Len(t, decision.Reasons, 1)
	assert.Contains(t, decision.Reasons[0], "daily edit limit reached (2 of 2 used)")
	records.AssertExpectations(t)
}

func TestAuthorizeQuotaSkippedOnPropose(t *testing.T) {
	records := new(mockEditRecordRepo)
	gate := NewGateService(records)

	caps := domain.DefaultMagicLinkCapabilities()
	caps.MaxEditsPerDay = 1
	access := magicLinkAccess(caps)

	decision, err := gate.Authorize(access, "page-1", []domain.Operation{
		{Type: domain.OpUpdate, Section: &domain.SectionRef{Index: intRef(0)}, Path: "props.headline", Value: "x"},
	}, domain.RiskLow, false)
	require.NoError(t, err)

	assert.True(t, decision.Allowed)
	records.AssertNotCalled(t, "CountAppliedSince", mock.Anything, mock.Anything)
}

func TestAuthorizeCollectsAllReasons(t *testing.T) {
	records := new(mockEditRecordRepo)
	gate := NewGateService(records)

	caps := domain.DefaultMagicLinkCapabilities()
	caps.AllowedPages = []string{"page-1"}
	access := magicLinkAccess(caps)

	decision, err := gate.Authorize(access, "page-9", []domain.Operation{
		{Type: domain.OpAddSection, Position: intRef(0), ComponentType: "faq"},
	}, domain.RiskHigh, false)
	require.NoError(t, err)

	assert.False(t, decision.Allowed)
	assert.Len(t, decision.Reasons, 3) // section grant, risk veto, page scope
}
