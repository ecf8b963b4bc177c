package content

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/sitewand/sitewand-backend/internal/common"
	"github.com/sitewand/sitewand-backend/internal/domain"
)

// ValidateOperations checks an operation batch for structural
// well-formedness and path syntax, returning per-operation errors.
// Batches that pass can still fail at apply time when a reference does
// not resolve against the current document.
func ValidateOperations(ops []domain.Operation) []error {
	var errs []error
	for i := range ops {
		op := &ops[i]
		if err := op.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("operation %d: %w", i, err))
			continue
		}
		if op.Path != "" {
			if _, err := ParsePath(op.Path); err != nil {
				errs = append(errs, fmt.Errorf("operation %d: %w", i, err))
			}
		}
	}
	return errs
}

// Apply executes an operation batch against a document, strictly in
// order, each operation seeing the effect of the ones before it. The
// input document is never mutated: on success the new document is
// returned, on any failure the original is returned with a
// ResolutionError and nothing takes effect.
//
// Warnings report non-fatal conditions, currently only ambiguous
// findSection references (first match wins).
func Apply(doc domain.Document, ops []domain.Operation) (domain.Document, []string, error) {
	next := doc.Clone()
	var warnings []string

	for i := range ops {
		op := &ops[i]
		if err := op.Validate(); err != nil {
			return doc, nil, &common.ResolutionError{
				OpIndex: i,
				Code:    common.ResolutionInvalidOp,
				Message: err.Error(),
			}
		}

		warning, err := applyOne(&next, op, i)
		if err != nil {
			return doc, nil, err
		}
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	return next, warnings, nil
}

func applyOne(doc *domain.Document, op *domain.Operation, opIdx int) (string, error) {
	switch op.Type {
	case domain.OpUpdate:
		return applyUpdate(doc, op, opIdx)
	case domain.OpAddSection:
		return "", applyAddSection(doc, op)
	case domain.OpRemoveSection:
		return applyRemoveSection(doc, op, opIdx)
	case domain.OpReorder:
		return "", applyReorder(doc, op, opIdx)
	case domain.OpAddItem:
		return applyAddItem(doc, op, opIdx)
	case domain.OpRemoveItem:
		return applyRemoveItem(doc, op, opIdx)
	case domain.OpUpdateItem:
		return applyUpdateItem(doc, op, opIdx)
	}
	return "", &common.ResolutionError{
		OpIndex: opIdx,
		Code:    common.ResolutionInvalidOp,
		Message: fmt.Sprintf("unknown operation type %q", op.Type),
	}
}

// resolveSection turns a section reference into a concrete index.
// findSection picks the first section with a matching componentType;
// additional matches produce a warning rather than a failure.
func resolveSection(doc *domain.Document, ref *domain.SectionRef, opIdx int) (int, string, error) {
	if ref.Index != nil {
		idx := *ref.Index
		if idx < 0 || idx >= len(doc.Sections) {
			return 0, "", &common.ResolutionError{
				OpIndex: opIdx,
				Code:    common.ResolutionSectionNotFound,
				Message: fmt.Sprintf("section index %d out of range (document has %d sections)", idx, len(doc.Sections)),
			}
		}
		return idx, "", nil
	}

	found := -1
	matches := 0
	for i, s := range doc.Sections {
		if s.ComponentType == ref.FindSection {
			if found == -1 {
				found = i
			}
			matches++
		}
	}
	if found == -1 {
		return 0, "", &common.ResolutionError{
			OpIndex: opIdx,
			Code:    common.ResolutionSectionNotFound,
			Message: fmt.Sprintf("no section with componentType %q", ref.FindSection),
		}
	}

	warning := ""
	if matches > 1 {
		warning = fmt.Sprintf("operation %d: %d sections match componentType %q, using the first", opIdx, matches, ref.FindSection)
	}
	return found, warning, nil
}

func applyUpdate(doc *domain.Document, op *domain.Operation, opIdx int) (string, error) {
	idx, warning, err := resolveSection(doc, op.Section, opIdx)
	if err != nil {
		return "", err
	}

	path, err := ParsePath(op.Path)
	if err != nil {
		return "", pathErr(opIdx, err)
	}

	section := &doc.Sections[idx]
	if section.Props == nil {
		section.Props = map[string]interface{}{}
	}

	parent, err := walkToParent(section.Props, path, opIdx)
	if err != nil {
		return "", err
	}

	leaf := path.Leaf()
	if leaf.IsIndex {
		arr, ok := parent.([]interface{})
		if !ok {
			return "", pathErrf(opIdx, "path %q indexes into a non-array", op.Path)
		}
		if leaf.Index >= len(arr) {
			return "", &common.ResolutionError{
				OpIndex: opIdx,
				Code:    common.ResolutionIndexOutOfRange,
				Message: fmt.Sprintf("index %d out of range at path %q (length %d)", leaf.Index, op.Path, len(arr)),
			}
		}
		arr[leaf.Index] = domain.CloneValue(op.Value)
		return warning, nil
	}

	m, ok := parent.(map[string]interface{})
	if !ok {
		return "", pathErrf(opIdx, "path %q sets a field on a non-object", op.Path)
	}
	// Setting a new leaf field is permitted; creating missing
	// intermediate containers is not (walkToParent already failed).
	m[leaf.Field] = domain.CloneValue(op.Value)
	return warning, nil
}

func applyAddSection(doc *domain.Document, op *domain.Operation) error {
	pos := *op.Position
	if pos < 0 {
		pos = 0
	}
	if pos > len(doc.Sections) {
		pos = len(doc.Sections)
	}

	section := domain.Section{
		ID:            uuid.NewString(),
		ComponentType: op.ComponentType,
		Props:         domain.CloneProps(op.Props),
	}
	if section.Props == nil {
		section.Props = map[string]interface{}{}
	}

	doc.Sections = append(doc.Sections, domain.Section{})
	copy(doc.Sections[pos+1:], doc.Sections[pos:])
	doc.Sections[pos] = section

	renumber(doc)
	return nil
}

func applyRemoveSection(doc *domain.Document, op *domain.Operation, opIdx int) (string, error) {
	idx, warning, err := resolveSection(doc, op.Section, opIdx)
	if err != nil {
		return "", err
	}

	doc.Sections = append(doc.Sections[:idx], doc.Sections[idx+1:]...)
	renumber(doc)
	return warning, nil
}

func applyReorder(doc *domain.Document, op *domain.Operation, opIdx int) error {
	from, to := *op.FromIndex, *op.ToIndex
	n := len(doc.Sections)
	if from < 0 || from >= n {
		return &common.ResolutionError{
			OpIndex: opIdx,
			Code:    common.ResolutionIndexOutOfRange,
			Message: fmt.Sprintf("reorder from index %d out of range (document has %d sections)", from, n),
		}
	}
	if to < 0 || to >= n {
		return &common.ResolutionError{
			OpIndex: opIdx,
			Code:    common.ResolutionIndexOutOfRange,
			Message: fmt.Sprintf("reorder to index %d out of range (document has %d sections)", to, n),
		}
	}

	moved := doc.Sections[from]
	doc.Sections = append(doc.Sections[:from], doc.Sections[from+1:]...)
	doc.Sections = append(doc.Sections, domain.Section{})
	copy(doc.Sections[to+1:], doc.Sections[to:])
	doc.Sections[to] = moved

	renumber(doc)
	return nil
}

func applyAddItem(doc *domain.Document, op *domain.Operation, opIdx int) (string, error) {
	idx, warning, err := resolveSection(doc, op.Section, opIdx)
	if err != nil {
		return "", err
	}

	path, err := ParsePath(op.Path)
	if err != nil {
		return "", pathErr(opIdx, err)
	}
	leaf := path.Leaf()
	if leaf.IsIndex {
		return "", pathErrf(opIdx, "add_item path %q must end at an array field, not an index", op.Path)
	}

	section := &doc.Sections[idx]
	if section.Props == nil {
		section.Props = map[string]interface{}{}
	}

	parent, err := walkToParent(section.Props, path, opIdx)
	if err != nil {
		return "", err
	}
	m, ok := parent.(map[string]interface{})
	if !ok {
		return "", pathErrf(opIdx, "path %q addresses a field on a non-object", op.Path)
	}

	existing, present := m[leaf.Field]
	if !present {
		// New leaf array is allowed, same as setting a new leaf field.
		m[leaf.Field] = []interface{}{domain.CloneValue(op.Value)}
		return warning, nil
	}
	arr, ok := existing.([]interface{})
	if !ok {
		return "", pathErrf(opIdx, "field at path %q is not an array", op.Path)
	}
	m[leaf.Field] = append(arr, domain.CloneValue(op.Value))
	return warning, nil
}

func applyRemoveItem(doc *domain.Document, op *domain.Operation, opIdx int) (string, error) {
	arr, m, field, warning, err := resolveArray(doc, op, opIdx)
	if err != nil {
		return "", err
	}

	item := *op.ItemIndex
	if item < 0 || item >= len(arr) {
		return "", itemOutOfRange(opIdx, item, len(arr), op.Path)
	}

	m[field] = append(arr[:item], arr[item+1:]...)
	return warning, nil
}

func applyUpdateItem(doc *domain.Document, op *domain.Operation, opIdx int) (string, error) {
	arr, _, _, warning, err := resolveArray(doc, op, opIdx)
	if err != nil {
		return "", err
	}

	item := *op.ItemIndex
	if item < 0 || item >= len(arr) {
		return "", itemOutOfRange(opIdx, item, len(arr), op.Path)
	}

	obj, ok := arr[item].(map[string]interface{})
	if !ok {
		return "", pathErrf(opIdx, "item %d at path %q is not an object", item, op.Path)
	}
	obj[op.Field] = domain.CloneValue(op.Value)
	return warning, nil
}

// resolveArray locates the array addressed by op.Path and returns it
// together with its owning object and field name so callers can write
// a replacement slice back.
func resolveArray(doc *domain.Document, op *domain.Operation, opIdx int) ([]interface{}, map[string]interface{}, string, string, error) {
	idx, warning, err := resolveSection(doc, op.Section, opIdx)
	if err != nil {
		return nil, nil, "", "", err
	}

	path, err := ParsePath(op.Path)
	if err != nil {
		return nil, nil, "", "", pathErr(opIdx, err)
	}
	leaf := path.Leaf()
	if leaf.IsIndex {
		return nil, nil, "", "", pathErrf(opIdx, "path %q must end at an array field, not an index", op.Path)
	}

	section := &doc.Sections[idx]
	parent, err := walkToParent(section.Props, path, opIdx)
	if err != nil {
		return nil, nil, "", "", err
	}
	m, ok := parent.(map[string]interface{})
	if !ok {
		return nil, nil, "", "", pathErrf(opIdx, "path %q addresses a field on a non-object", op.Path)
	}

	existing, present := m[leaf.Field]
	if !present {
		return nil, nil, "", "", pathErrf(opIdx, "no field at path %q", op.Path)
	}
	arr, ok := existing.([]interface{})
	if !ok {
		return nil, nil, "", "", pathErrf(opIdx, "field at path %q is not an array", op.Path)
	}

	return arr, m, leaf.Field, warning, nil
}

// walkToParent navigates every step except the last and returns the
// container the final step addresses into. Missing intermediate
// containers are a failure; only the leaf may be new.
func walkToParent(props map[string]interface{}, path FieldPath, opIdx int) (interface{}, error) {
	var cur interface{} = props
	for _, step := range path[:len(path)-1] {
		if step.IsIndex {
			arr, ok := cur.([]interface{})
			if !ok {
				return nil, pathErrf(opIdx, "segment %q indexes into a non-array", step.String())
			}
			if step.Index >= len(arr) {
				return nil, &common.ResolutionError{
					OpIndex: opIdx,
					Code:    common.ResolutionIndexOutOfRange,
					Message: fmt.Sprintf("index %d out of range (length %d)", step.Index, len(arr)),
				}
			}
			cur = arr[step.Index]
			continue
		}

		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, pathErrf(opIdx, "segment %q reads a field on a non-object", step.Field)
		}
		v, exists := m[step.Field]
		if !exists {
			return nil, pathErrf(opIdx, "no container at segment %q", step.Field)
		}
		cur = v
	}
	return cur, nil
}

func renumber(doc *domain.Document) {
	for i := range doc.Sections {
		doc.Sections[i].Order = i
	}
}

func pathErr(opIdx int, err error) error {
	return &common.ResolutionError{
		OpIndex: opIdx,
		Code:    common.ResolutionPathNotFound,
		Message: err.Error(),
	}
}

func pathErrf(opIdx int, format string, args ...interface{}) error {
	return &common.ResolutionError{
		OpIndex: opIdx,
		Code:    common.ResolutionPathNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

func itemOutOfRange(opIdx, item, length int, path string) error {
	return &common.ResolutionError{
		OpIndex: opIdx,
		Code:    common.ResolutionIndexOutOfRange,
		Message: fmt.Sprintf("itemIndex %d out of range at path %q (length %d)", item, path, length),
	}
}
