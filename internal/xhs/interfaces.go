package xhs

import (
	"context"
	"errors"
	"time"
)

// ErrFieldNotFound is returned by Table.FieldByName when no column carries
// the requested display name. Only this failure triggers column creation;
// any other lookup error propagates untouched.
var ErrFieldNotFound = errors.New("field not found")

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// FieldHandle is one host table column, scoped to per-row reads and writes.
type FieldHandle interface {
	Value(ctx context.Context, recordID string) (CellValue, error)
	SetValue(ctx context.Context, recordID string, value any) error
}

// FieldMeta identifies a column in the host table.
type FieldMeta struct {
	ID   string
	Name string
}

// FieldSpec describes a column to create.
type FieldSpec struct {
	Type FieldType
	Name string
}

// Selection is the host table's current selection.
type Selection struct {
	RecordID string
}

// Table is the host-table capability surface consumed by the pipeline. The
// real implementation talks to the Base open API; tests use the in-memory
// one. Cell payloads are normalized to CellValue at this boundary, never
// deeper in the pipeline.
type Table interface {
	Field(ctx context.Context, id string) (FieldHandle, error)
	FieldByName(ctx context.Context, name string) (FieldHandle, error)
	AddField(ctx context.Context, spec FieldSpec) (string, error)
	FieldMetaListByType(ctx context.Context, t FieldType) ([]FieldMeta, error)
	Selection(ctx context.Context) (Selection, error)
}
