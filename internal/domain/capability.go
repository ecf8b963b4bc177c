package domain

// CapabilitySet is the permission grant held by a requester, either the
// site owner (full set) or a magic link (scoped set).
type CapabilitySet struct {
	CanEditText       bool `json:"canEditText"`
	CanEditColors     bool `json:"canEditColors"`
	CanEditImages     bool `json:"canEditImages"`
	CanAddSections    bool `json:"canAddSections"`
	CanRemoveSections bool `json:"canRemoveSections"`

	// RequiresApproval vetoes high-risk batches until the owner confirms
	RequiresApproval bool `json:"requiresApproval"`

	// AllowedPages restricts which pages may be targeted; empty means
	// unrestricted.
	AllowedPages []string `json:"allowedPages,omitempty"`

	// MaxEditsPerDay caps applied edits per rolling 24 hours; zero means
	// unlimited.
	MaxEditsPerDay int `json:"maxEditsPerDay,omitempty"`
}

// PageAllowed reports whether the capability set permits targeting the page
func (c CapabilitySet) PageAllowed(pageID string) bool {
	if len(c.AllowedPages) == 0 {
		return true
	}
	for _, id := range c.AllowedPages {
		if id == pageID {
			return true
		}
	}
	return false
}

// OwnerCapabilities is the implicit full grant of an authenticated owner
func OwnerCapabilities() CapabilitySet {
	return CapabilitySet{
		CanEditText:       true,
		CanEditColors:     true,
		CanEditImages:     true,
		CanAddSections:    true,
		CanRemoveSections: true,
		RequiresApproval:  false,
	}
}

// DefaultMagicLinkCapabilities is the documented default grant for new
// magic links: text and color editing only, high-risk changes held for
// approval, 50 edits per day.
func DefaultMagicLinkCapabilities() CapabilitySet {
	return CapabilitySet{
		CanEditText:       true,
		CanEditColors:     true,
		CanEditImages:     false,
		CanAddSections:    false,
		CanRemoveSections: false,
		RequiresApproval:  true,
		MaxEditsPerDay:    50,
	}
}

// CapabilityOverrides overlays explicit grants onto the default set at
// magic link creation time. Nil fields keep the default.
type CapabilityOverrides struct {
	CanEditText       *bool   `json:"canEditText,omitempty"`
	CanEditColors     *bool   `json:"canEditColors,omitempty"`
	CanEditImages     *bool   `json:"canEditImages,omitempty"`
	CanAddSections    *bool   `json:"canAddSections,omitempty"`
	CanRemoveSections *bool   `json:"canRemoveSections,omitempty"`
	RequiresApproval  *bool   `json:"requiresApproval,omitempty"`
	AllowedPages      []string `json:"allowedPages,omitempty"`
	MaxEditsPerDay    *int    `json:"maxEditsPerDay,omitempty"`
}

// Apply overlays the overrides onto a base capability set
func (o *CapabilityOverrides) Apply(base CapabilitySet) CapabilitySet {
	if o == nil {
		return base
	}
	if o.CanEditText != nil {
		base.CanEditText = *o.CanEditText
	}
	if o.CanEditColors != nil {
		base.CanEditColors = *o.CanEditColors
	}
	if o.CanEditImages != nil {
		base.CanEditImages = *o.CanEditImages
	}
	if o.CanAddSections != nil {
		base.CanAddSections = *o.CanAddSections
	}
	if o.CanRemoveSections != nil {
		base.CanRemoveSections = *o.CanRemoveSections
	}
	if o.RequiresApproval != nil {
		base.RequiresApproval = *o.RequiresApproval
	}
	if len(o.AllowedPages) > 0 {
		base.AllowedPages = o.AllowedPages
	}
	if o.MaxEditsPerDay != nil {
		base.MaxEditsPerDay = *o.MaxEditsPerDay
	}
	return base
}
