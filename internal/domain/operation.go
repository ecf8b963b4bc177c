package domain

import (
	"encoding/json"
	"fmt"
)

// OpType identifies one of the closed set of mutation instructions
type OpType string

const (
	OpUpdate        OpType = "update"
	OpAddSection    OpType = "add_section"
	OpRemoveSection OpType = "remove_section"
	OpReorder       OpType = "reorder"
	OpAddItem       OpType = "add_item"
	OpRemoveItem    OpType = "remove_item"
	OpUpdateItem    OpType = "update_item"
)

// SectionRef addresses a section either by direct index or by the
// componentType of the first matching section, resolved at apply time.
type SectionRef struct {
	Index       *int   `json:"index,omitempty"`
	FindSection string `json:"findSection,omitempty"`
}

// UnmarshalJSON accepts either a bare number (direct index) or an
// object form {"index": n} / {"findSection": "component-type"}.
func (r *SectionRef) UnmarshalJSON(data []byte) error {
	var idx int
	if err := json.Unmarshal(data, &idx); err == nil {
		r.Index = &idx
		r.FindSection = ""
		return nil
	}

	type refAlias SectionRef
	var alias refAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return fmt.Errorf("invalid section reference: %s", string(data))
	}
	*r = SectionRef(alias)
	return nil
}

// MarshalJSON emits the compact number form for direct indices
func (r SectionRef) MarshalJSON() ([]byte, error) {
	if r.Index != nil && r.FindSection == "" {
		return json.Marshal(*r.Index)
	}
	type refAlias SectionRef
	return json.Marshal(refAlias(r))
}

func (r SectionRef) String() string {
	if r.Index != nil {
		return fmt.Sprintf("#%d", *r.Index)
	}
	return fmt.Sprintf("findSection(%s)", r.FindSection)
}

// Operation is one atomic, typed instruction to mutate a document.
// Fields are populated per type; Validate enforces which are required.
type Operation struct {
	Type OpType `json:"type"`

	// update / remove_section / add_item / remove_item / update_item
	Section *SectionRef `json:"section,omitempty"`

	// update / add_item / remove_item / update_item
	Path string `json:"path,omitempty"`

	// update / add_item / update_item
	Value interface{} `json:"value,omitempty"`

	// add_section
	Position      *int                   `json:"position,omitempty"`
	ComponentType string                 `json:"componentType,omitempty"`
	Props         map[string]interface{} `json:"props,omitempty"`

	// reorder
	FromIndex *int `json:"from,omitempty"`
	ToIndex   *int `json:"to,omitempty"`

	// remove_item / update_item
	ItemIndex *int `json:"itemIndex,omitempty"`

	// update_item
	Field string `json:"field,omitempty"`
}

// Validate checks structural well-formedness: required fields per
// operation type. Path syntax is validated separately by the content
// package so malformed paths are rejected before apply time.
func (op *Operation) Validate() error {
	switch op.Type {
	case OpUpdate:
		if op.Section == nil {
			return fmt.Errorf("update requires a section reference")
		}
		if op.Path == "" {
			return fmt.Errorf("update requires a path")
		}
	case OpAddSection:
		if op.ComponentType == "" {
			return fmt.Errorf("add_section requires a componentType")
		}
		if op.Position == nil {
			return fmt.Errorf("add_section requires a position")
		}
	case OpRemoveSection:
		if op.Section == nil {
			return fmt.Errorf("remove_section requires a section reference")
		}
	case OpReorder:
		if op.FromIndex == nil || op.ToIndex == nil {
			return fmt.Errorf("reorder requires from and to indices")
		}
	case OpAddItem:
		if op.Section == nil || op.Path == "" {
			return fmt.Errorf("add_item requires a section reference and path")
		}
	case OpRemoveItem:
		if op.Section == nil || op.Path == "" || op.ItemIndex == nil {
			return fmt.Errorf("remove_item requires a section reference, path and itemIndex")
		}
	case OpUpdateItem:
		if op.Section == nil || op.Path == "" || op.ItemIndex == nil || op.Field == "" {
			return fmt.Errorf("update_item requires a section reference, path, itemIndex and field")
		}
	default:
		return fmt.Errorf("unknown operation type: %q", op.Type)
	}

	if op.Section != nil && op.Section.Index == nil && op.Section.FindSection == "" {
		return fmt.Errorf("section reference needs an index or findSection")
	}

	return nil
}

// EncodeOperations serializes an operation batch for persistence
func EncodeOperations(ops []Operation) (string, error) {
	data, err := json.Marshal(ops)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeOperations deserializes a persisted operation batch
func DecodeOperations(raw string) ([]Operation, error) {
	if raw == "" {
		return nil, nil
	}
	var ops []Operation
	if err := json.Unmarshal([]byte(raw), &ops); err != nil {
		return nil, err
	}
	return ops, nil
}
