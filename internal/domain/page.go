package domain

import (
	"encoding/json"
	"time"
)

// Section is one addressable, typed block of a page's content tree.
// Order positions form a contiguous zero-based permutation of the
// section sequence after every successful mutation.
type Section struct {
	ID            string                 `json:"id"`
	ComponentType string                 `json:"componentType"`
	Order         int                    `json:"order"`
	Props         map[string]interface{} `json:"props"`
}

// Document is a page's content tree: an ordered sequence of sections
type Document struct {
	Sections []Section `json:"sections"`
}

// Clone returns a deep copy of the document. Mutating the copy never
// touches the original, which is what makes atomic batch application
// cheap to guarantee.
func (d Document) Clone() Document {
	out := Document{Sections: make([]Section, len(d.Sections))}
	for i, s := range d.Sections {
		out.Sections[i] = Section{
			ID:            s.ID,
			ComponentType: s.ComponentType,
			Order:         s.Order,
			Props:         CloneProps(s.Props),
		}
	}
	return out
}

// CloneProps deep-copies a props mapping
func CloneProps(props map[string]interface{}) map[string]interface{} {
	if props == nil {
		return nil
	}
	out := make(map[string]interface{}, len(props))
	for k, v := range props {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a JSON-shaped value (scalar, object or array)
func CloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CloneProps(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = CloneValue(e)
		}
		return out
	default:
		return t
	}
}

// Page is the stored unit a document belongs to. Content is persisted
// as a JSON column; Version advances by one on every applied edit.
type Page struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	SiteID    string    `gorm:"column:site_id;index;type:varchar(36)" json:"site_id"`
	Slug      string    `gorm:"column:slug;type:varchar(255)" json:"slug"`
	Title     string    `gorm:"column:title;type:varchar(255)" json:"title"`
	Content   string    `gorm:"column:content;type:json" json:"-"`
	Version   uint      `gorm:"column:version;default:1" json:"version"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Page) TableName() string { return "pages" }

// Document decodes the stored content column
func (p *Page) Document() (Document, error) {
	var doc Document
	if p.Content == "" {
		return doc, nil
	}
	err := json.Unmarshal([]byte(p.Content), &doc)
	return doc, err
}

// SetDocument encodes the document into the content column
func (p *Page) SetDocument(doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	p.Content = string(data)
	return nil
}

// PageRevision stores page content history. One row is written per
// applied edit, snapshotting the content as it was before the edit.
type PageRevision struct {
	ID           uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PageID       string    `gorm:"column:page_id;index;type:varchar(36)" json:"page_id"`
	Version      uint      `gorm:"column:version" json:"version"`
	ChangeType   string    `gorm:"column:change_type;type:varchar(20)" json:"change_type"` // create, ai_edit, restore
	Content      string    `gorm:"column:content;type:json" json:"content"`
	EditedBy     string    `gorm:"column:edited_by;type:varchar(64)" json:"edited_by"`
	EditedByType string    `gorm:"column:edited_by_type;type:varchar(20)" json:"edited_by_type"` // owner, magic_link
	EditedAt     time.Time `gorm:"column:edited_at;autoCreateTime" json:"edited_at"`
}

func (PageRevision) TableName() string { return "page_revisions" }
