package domain

// RiskLevel is the interpreter-assigned severity of a proposed change
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether the risk level is one of the known values
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// EditProposal is the interpreter's output for one free-text request.
// It is not persisted until explicitly applied or logged as pending.
type EditProposal struct {
	Understood     bool        `json:"understood"`
	Interpretation string      `json:"interpretation"`
	Operations     []Operation `json:"operations"`
	RiskLevel      RiskLevel   `json:"riskLevel"`
	Summary        string      `json:"summary"`
}
