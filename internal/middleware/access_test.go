package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/pkg/jwt"
)

type stubLinkValidator struct {
	link *domain.MagicLink
	err  error
}

func (s *stubLinkValidator) Create(string, string, int, *domain.CapabilityOverrides) (*domain.MagicLink, string, error) {
	return nil, "", nil
}
func (s *stubLinkValidator) Validate(string, string) (*domain.MagicLink, error) {
	return s.link, s.err
}
func (s *stubLinkValidator) RecordUsage(*domain.MagicLink) error            { return nil }
func (s *stubLinkValidator) Revoke(string, string) error                    { return nil }
func (s *stubLinkValidator) ListBySite(string) ([]*domain.MagicLink, error) { return nil, nil }

func accessRouter(jwtManager *jwt.Manager, links *stubLinkValidator, ownerID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	sites := func(string) (string, error) { return ownerID, nil }
	router.GET("/sites/:site_id/probe", EditAccess(jwtManager, links, sites), func(c *gin.Context) {
		access := GetAccessContext(c)
		c.JSON(http.StatusOK, gin.H{"type": string(access.Type)})
	})
	return router
}

func TestEditAccessOwnerSession(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	token, err := jwtManager.GenerateToken("owner-1", "")
	require.NoError(t, err)

	router := accessRouter(jwtManager, &stubLinkValidator{}, "owner-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sites/site-1/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "owner")
}

func TestEditAccessRejectsForeignOwner(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	token, err := jwtManager.GenerateToken("intruder", "")
	require.NoError(t, err)

	router := accessRouter(jwtManager, &stubLinkValidator{}, "owner-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sites/site-1/probe", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEditAccessMagicToken(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	links := &stubLinkValidator{link: &domain.MagicLink{
		ID: "link-1", SiteID: "site-1",
		Capabilities: domain.DefaultMagicLinkCapabilities(),
	}}
	router := accessRouter(jwtManager, links, "owner-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sites/site-1/probe", nil)
	req.Header.Set(MagicTokenHeader, "raw-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "magic_link")
}

func TestEditAccessExpiredMagicToken(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	links := &stubLinkValidator{err: common.ErrLinkExpired}
	router := accessRouter(jwtManager, links, "owner-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sites/site-1/probe", nil)
	req.Header.Set(MagicTokenHeader, "stale-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestEditAccessRequiresCredentials(t *testing.T) {
	jwtManager := jwt.NewManager("test-secret", time.Hour)
	router := accessRouter(jwtManager, &stubLinkValidator{}, "owner-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sites/site-1/probe", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
