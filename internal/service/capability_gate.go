package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/sitewand/sitewand-backend/internal/domain"
	"github.com/sitewand/sitewand-backend/internal/repository"
)

// editKind classifies what a field-level operation touches, derived
// from the target field's name.
type editKind int

const (
	editText editKind = iota
	editColor
	editImage
)

var colorFieldHints = []string{"color", "colour", "background", "theme", "accent", "gradient"}
var imageFieldHints = []string{"image", "img", "photo", "picture", "logo", "icon", "avatar", "banner", "thumbnail"}

// classifyField decides whether a field name is a color, image, or
// plain text target.
func classifyField(field string) editKind {
	lower := strings.ToLower(field)
	for _, hint := range colorFieldHints {
		if strings.Contains(lower, hint) {
			return editColor
		}
	}
	for _, hint := range imageFieldHints {
		if strings.Contains(lower, hint) {
			return editImage
		}
	}
	return editText
}

// targetField extracts the field name an operation writes to
func targetField(op *domain.Operation) string {
	if op.Type == domain.OpUpdateItem && op.Field != "" {
		return op.Field
	}
	segments := strings.Split(op.Path, ".")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" {
			continue
		}
		if isDigitsOnly(seg) {
			continue
		}
		return seg
	}
	return op.Path
}

func isDigitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// CheckOperations evaluates the per-operation capability predicate and
// returns every violated rule, not just the first.
func CheckOperations(caps domain.CapabilitySet, ops []domain.Operation) []string {
	var reasons []string

	for i := range ops {
		op := &ops[i]
		switch op.Type {
		case domain.OpAddSection:
			if !caps.CanAddSections {
				reasons = append(reasons, fmt.Sprintf("operation %d: adding sections is not permitted", i))
			}
		case domain.OpRemoveSection:
			if !caps.CanRemoveSections {
				reasons = append(reasons, fmt.Sprintf("operation %d: removing sections is not permitted", i))
			}
		case domain.OpReorder:
			// Base edit access covers reordering.
		case domain.OpUpdate, domain.OpAddItem, domain.OpUpdateItem, domain.OpRemoveItem:
			switch classifyField(targetField(op)) {
			case editColor:
				if !caps.CanEditColors {
					reasons = append(reasons, fmt.Sprintf("operation %d: editing colors is not permitted", i))
				}
			case editImage:
				if !caps.CanEditImages {
					reasons = append(reasons, fmt.Sprintf("operation %d: editing images is not permitted", i))
				}
			default:
				if !caps.CanEditText {
					reasons = append(reasons, fmt.Sprintf("operation %d: editing text is not permitted", i))
				}
			}
		default:
			reasons = append(reasons, fmt.Sprintf("operation %d: unknown operation type %q", i, op.Type))
		}
	}

	return reasons
}

// CheckRisk evaluates the cross-cutting risk veto. It is independent of
// the per-operation checks: a high-risk batch from a requester whose
// grant requires approval is denied even when every operation would be
// individually permitted.
func CheckRisk(caps domain.CapabilitySet, risk domain.RiskLevel) []string {
	if risk == domain.RiskHigh && caps.RequiresApproval {
		return []string{"high-risk changes require owner approval"}
	}
	return nil
}

// CheckPage evaluates the page scope restriction
func CheckPage(caps domain.CapabilitySet, pageID string) []string {
	if !caps.PageAllowed(pageID) {
		return []string{fmt.Sprintf("page %s is outside this link's allowed pages", pageID)}
	}
	return nil
}

// GateDecision is the outcome of an authorization check
type GateDecision struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons,omitempty"`
}

// GateService combines the composable policy predicates with the
// magic-link daily quota, which needs edit record history.
type GateService struct {
	editRecords repository.EditRecordRepository
	now         func() time.Time
}

// NewGateService creates a new GateService
func NewGateService(editRecords repository.EditRecordRepository) *GateService {
	return &GateService{
		editRecords: editRecords,
		now:         time.Now,
	}
}

// Authorize screens a proposal against the requester's capability set.
// checkQuota should be true only on the apply path; proposals preview
// freely inside the remaining checks.
func (g *GateService) Authorize(access *domain.AccessContext, pageID string, ops []domain.Operation, risk domain.RiskLevel, checkQuota bool) (*GateDecision, error) {
	var reasons []string

	reasons = append(reasons, CheckOperations(access.Capabilities, ops)...)
	reasons = append(reasons, CheckRisk(access.Capabilities, risk)...)
	reasons = append(reasons, CheckPage(access.Capabilities, pageID)...)

	if checkQuota && access.Type == domain.AccessMagicLink && access.Link != nil {
		quota := access.Capabilities.MaxEditsPerDay
		if quota > 0 {
			since := g.now().Add(-24 * time.Hour)
			used, err := g.editRecords.CountAppliedSince(access.Link.ID, since)
			if err != nil {
				return nil, fmt.Errorf("quota check failed: %w", err)
			}
			if used >= int64(quota) {
				reasons = append(reasons, fmt.Sprintf("daily edit limit reached (%d of %d used)", used, quota))
			}
		}
	}

	return &GateDecision{
		Allowed: len(reasons) == 0,
		Reasons: reasons,
	}, nil
}
