package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/internal/repository"
	"github.com/sitewand/sitewand-backend/pkg/logger"
)

// MagicLinkService manages the magic link lifecycle. Tokens are bearer
// secrets: 32 bytes of entropy, URL-safe, returned exactly once at
// creation. Only the SHA-256 hash is stored.
type MagicLinkService interface {
	// Create issues a new link; the second return value is the raw token
	Create(siteID, label string, expiresInDays int, overrides *domain.CapabilityOverrides) (*domain.MagicLink, string, error)
	// Validate resolves a raw token to an active, unexpired link
	Validate(siteID, token string) (*domain.MagicLink, error)
	// RecordUsage bumps the usage counter; called once per applied edit
	RecordUsage(link *domain.MagicLink) error
	// Revoke deactivates a link; owner-only, one-way
	Revoke(linkID, requestingOwner string) error
	ListBySite(siteID string) ([]*domain.MagicLink, error)
}

type magicLinkService struct {
	links repository.MagicLinkRepository
	sites repository.SiteRepository
	now   func() time.Time
}

// NewMagicLinkService creates a new MagicLinkService
func NewMagicLinkService(links repository.MagicLinkRepository, sites repository.SiteRepository) MagicLinkService {
	return &magicLinkService{
		links: links,
		sites: sites,
		now:   time.Now,
	}
}

func (s *magicLinkService) Create(siteID, label string, expiresInDays int, overrides *domain.CapabilityOverrides) (*domain.MagicLink, string, error) {
	token, err := generateToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	link := &domain.MagicLink{
		ID:           uuid.NewString(),
		SiteID:       siteID,
		TokenHash:    hashToken(token),
		Label:        label,
		Capabilities: overrides.Apply(domain.DefaultMagicLinkCapabilities()),
		Active:       true,
	}

	if expiresInDays > 0 {
		expiry := s.now().AddDate(0, 0, expiresInDays)
		link.ExpiresAt = &expiry
	}

	if err := s.links.Create(link); err != nil {
		return nil, "", err
	}

	logger.Get().Info().
		Str("site_id", siteID).
		Str("link_id", link.ID).
		Str("label", label).
		Msg("magic link created")

	return link, token, nil
}

func (s *magicLinkService) Validate(siteID, token string) (*domain.MagicLink, error) {
	if token == "" {
		return nil, common.ErrLinkNotFound
	}

	link, err := s.links.FindActiveByTokenHash(siteID, hashToken(token))
	if err != nil {
		return nil, err
	}

	// Expiry is enforced here, at validation time. The row is not
	// mutated; an expired link simply stops validating.
	if link.Expired(s.now()) {
		return nil, common.ErrLinkExpired
	}

	return link, nil
}

func (s *magicLinkService) RecordUsage(link *domain.MagicLink) error {
	return s.links.IncrementUsage(link.ID, s.now())
}

func (s *magicLinkService) Revoke(linkID, requestingOwner string) error {
	link, err := s.links.FindByID(linkID)
	if err != nil {
		return err
	}

	site, err := s.sites.FindByID(link.SiteID)
	if err != nil {
		return err
	}
	if site.OwnerID != requestingOwner {
		return common.ErrForbidden
	}

	if !link.Active {
		return common.ErrLinkRevoked
	}

	if err := s.links.Deactivate(link.ID); err != nil {
		return err
	}

	logger.Get().Info().
		Str("site_id", link.SiteID).
		Str("link_id", link.ID).
		Str("revoked_by", requestingOwner).
		Msg("magic link revoked")

	return nil
}

func (s *magicLinkService) ListBySite(siteID string) ([]*domain.MagicLink, error) {
	return s.links.ListBySite(siteID)
}

// generateToken returns a 43-character URL-safe bearer token with 256
// bits of entropy.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
