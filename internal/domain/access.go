package domain

// AccessType distinguishes how a requester was authorized
type AccessType string

const (
	AccessOwner     AccessType = "owner"
	AccessMagicLink AccessType = "magic_link"
)

// AccessContext is the resolved identity and capability set for one
// request, built by the access middleware before any document work.
type AccessContext struct {
	Type         AccessType
	OwnerID      string
	Link         *MagicLink
	Capabilities CapabilitySet
}

// EditorID returns the identity to record on revisions and audit rows
func (a *AccessContext) EditorID() string {
	if a.Type == AccessOwner {
		return a.OwnerID
	}
	if a.Link != nil {
		return a.Link.ID
	}
	return ""
}
