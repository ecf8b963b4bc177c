package common

import (
	"errors"
	"fmt"
	"strings"
)

// Business logic errors
var (
	// General errors
	ErrForbidden = errors.New("forbidden")

	// Site / page errors
	ErrSiteNotFound = errors.New("site not found")
	ErrPageNotFound = errors.New("page not found")

	// Magic link errors
	ErrLinkNotFound = errors.New("magic link not found")
	ErrLinkRevoked  = errors.New("magic link revoked")
	ErrLinkExpired  = errors.New("magic link expired")

	// Edit pipeline errors
	ErrEditNotFound   = errors.New("edit record not found")
	ErrEditNotPending = errors.New("edit record is not pending")
	ErrStaleApply     = errors.New("page version changed since proposal")

	// Validation errors
	ErrInvalidInput = errors.New("invalid input")
)

// PermissionDeniedError carries every violated rule so callers can
// present a complete explanation, not just the first failure.
type PermissionDeniedError struct {
	Reasons []string
}

func (e *PermissionDeniedError) Error() string {
	return "permission denied: " + strings.Join(e.Reasons, "; ")
}

// ResolutionError reports which operation in a batch failed to resolve
// against the current document. The whole batch is aborted.
type ResolutionError struct {
	OpIndex int
	Code    string
	Message string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("operation %d: %s (%s)", e.OpIndex, e.Message, e.Code)
}

// Resolution error codes
const (
	ResolutionSectionNotFound = "section_not_found"
	ResolutionPathNotFound    = "path_not_found"
	ResolutionIndexOutOfRange = "index_out_of_range"
	ResolutionInvalidOp       = "invalid_operation"
)
