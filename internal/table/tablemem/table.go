// Package tablemem provides an in-memory host table used by tests and the
// memory table provider.
package tablemem

import (
	"context"
	"fmt"
	"sync"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

type field struct {
	meta  xhs.FieldMeta
	typ   xhs.FieldType
	cells map[string]any
}

// Table is a thread-safe in-memory implementation of xhs.Table.
type Table struct {
	mu        sync.Mutex
	nextID    int
	fields    map[string]*field
	byName    map[string]string
	selection xhs.Selection
}

// New creates an empty Table.
func New() *Table {
	return &Table{
		fields: make(map[string]*field),
		byName: make(map[string]string),
	}
}

// handle implements xhs.FieldHandle for one in-memory column.
type handle struct {
	t       *Table
	fieldID string
}

// Value returns the cell at recordID normalized to a CellValue.
func (h *handle) Value(_ context.Context, recordID string) (xhs.CellValue, error) {
	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	f, ok := h.t.fields[h.fieldID]
	if !ok {
		return xhs.CellValue{}, fmt.Errorf("field %s no longer exists", h.fieldID)
	}
	raw, ok := f.cells[recordID]
	if !ok || raw == nil {
		return xhs.CellValue{Kind: xhs.CellEmpty}, nil
	}
	switch v := raw.(type) {
	case xhs.CellValue:
		return v, nil
	case string:
		return xhs.CellValue{Kind: xhs.CellText, Text: v}, nil
	default:
		return xhs.CellValue{Kind: xhs.CellEmpty}, nil
	}
}

// SetValue writes value into the cell at recordID, overwriting any previous
// value.
func (h *handle) SetValue(_ context.Context, recordID string, value any) error {
	h.t.mu.Lock()
	defer h.t.mu.Unlock()
	f, ok := h.t.fields[h.fieldID]
	if !ok {
		return fmt.Errorf("field %s no longer exists", h.fieldID)
	}
	f.cells[recordID] = value
	return nil
}

// Field resolves a column by id.
func (t *Table) Field(_ context.Context, id string) (xhs.FieldHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.fields[id]; !ok {
		return nil, xhs.ErrFieldNotFound
	}
	return &handle{t: t, fieldID: id}, nil
}

// FieldByName resolves a column by display name.
func (t *Table) FieldByName(_ context.Context, name string) (xhs.FieldHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byName[name]
	if !ok {
		return nil, xhs.ErrFieldNotFound
	}
	return &handle{t: t, fieldID: id}, nil
}

// AddField creates a column and returns its id.
func (t *Table) AddField(_ context.Context, spec xhs.FieldSpec) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byName[spec.Name]; exists {
		return "", fmt.Errorf("field %q already exists", spec.Name)
	}
	t.nextID++
	id := fmt.Sprintf("fld%03d", t.nextID)
	t.fields[id] = &field{
		meta:  xhs.FieldMeta{ID: id, Name: spec.Name},
		typ:   spec.Type,
		cells: make(map[string]any),
	}
	t.byName[spec.Name] = id
	return id, nil
}

// FieldMetaListByType lists columns of the given type. Order is not
// guaranteed; callers only match by name.
func (t *Table) FieldMetaListByType(_ context.Context, ft xhs.FieldType) ([]xhs.FieldMeta, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var metas []xhs.FieldMeta
	for _, f := range t.fields {
		if f.typ == ft {
			metas = append(metas, f.meta)
		}
	}
	return metas, nil
}

// Selection returns the current selection.
func (t *Table) Selection(_ context.Context) (xhs.Selection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selection.RecordID == "" {
		return xhs.Selection{}, xhs.Validationf("select a row in the table first")
	}
	return t.selection, nil
}

// SetSelection sets the selected record for subsequent runs.
func (t *Table) SetSelection(recordID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selection = xhs.Selection{RecordID: recordID}
}

// SetCell seeds a raw cell value, for tests.
func (t *Table) SetCell(fieldID, recordID string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.fields[fieldID]; ok {
		f.cells[recordID] = value
	}
}

// Written returns the raw value last written to the named column at
// recordID, for tests.
func (t *Table) Written(name, recordID string) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	v, ok := t.fields[id].cells[recordID]
	return v, ok
}

// FieldType returns the declared type of the named column, for tests.
func (t *Table) FieldType(name string) (xhs.FieldType, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byName[name]
	if !ok {
		return 0, false
	}
	return t.fields[id].typ, true
}
