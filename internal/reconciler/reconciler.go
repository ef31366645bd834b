// Package reconciler writes extracted note fields back into the host table,
// creating missing columns with their declared types.
package reconciler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/SirMem/xhs-frontend/internal/xhs"
)

// Declarations is the fixed set of reconcilable fields. It is not derived
// from data; the display names match the columns earlier releases created,
// so they must not change.
var Declarations = []xhs.FieldDeclaration{
	{Key: xhs.KeyTitle, DisplayName: "笔记标题", Type: xhs.FieldText},
	{Key: xhs.KeyNickname, DisplayName: "博主昵称", Type: xhs.FieldText},
	{Key: xhs.KeyDesc, DisplayName: "笔记描述", Type: xhs.FieldText},
	{Key: xhs.KeyLikedCount, DisplayName: "点赞数", Type: xhs.FieldNumber},
	{Key: xhs.KeyTime, DisplayName: "发布时间", Type: xhs.FieldDateTime},
}

// Select filters Declarations down to the requested keys, preserving
// declaration order. Nil or empty keys selects everything.
func Select(keys []string) []xhs.FieldDeclaration {
	if len(keys) == 0 {
		return Declarations
	}
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	var out []xhs.FieldDeclaration
	for _, d := range Declarations {
		if wanted[d.Key] {
			out = append(out, d)
		}
	}
	return out
}

// Write records one committed field write.
type Write struct {
	Field string
	Value any
}

// Hooks lets the caller observe side effects as they happen, in order.
type Hooks struct {
	OnCreate func(displayName string)
	OnWrite  func(displayName string, value any)
}

// Reconciler applies note fields to host table rows.
type Reconciler struct {
	table  xhs.Table
	logger *zap.Logger
}

// New constructs a Reconciler.
func New(table xhs.Table, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{table: table, logger: logger}
}

// Apply writes each declared field of rec into the row at recordID. Missing
// columns are created first; absent or uncoercible source values skip their
// declaration without error. Writes are overwrite-semantics and are NOT
// transactional: a failure aborts the remaining declarations but leaves
// earlier writes committed. The committed writes are returned either way.
func (r *Reconciler) Apply(
	ctx context.Context,
	recordID string,
	rec xhs.NoteRecord,
	decls []xhs.FieldDeclaration,
	hooks Hooks,
) ([]Write, error) {
	var writes []Write
	for _, decl := range decls {
		field, err := r.table.FieldByName(ctx, decl.DisplayName)
		if errors.Is(err, xhs.ErrFieldNotFound) {
			// Only absence triggers creation; other lookup failures abort.
			id, addErr := r.table.AddField(ctx, xhs.FieldSpec{Type: decl.Type, Name: decl.DisplayName})
			if addErr != nil {
				return writes, fmt.Errorf("create field %q: %w", decl.DisplayName, addErr)
			}
			if hooks.OnCreate != nil {
				hooks.OnCreate(decl.DisplayName)
			}
			field, err = r.table.Field(ctx, id)
			if err != nil {
				return writes, fmt.Errorf("resolve created field %q: %w", decl.DisplayName, err)
			}
		} else if err != nil {
			return writes, fmt.Errorf("resolve field %q: %w", decl.DisplayName, err)
		}

		value, ok := coerce(rec, decl)
		if !ok {
			r.logger.Debug("skipping absent field",
				zap.String("key", decl.Key),
				zap.String("record", recordID),
			)
			continue
		}
		if err := field.SetValue(ctx, recordID, value); err != nil {
			return writes, fmt.Errorf("write field %q: %w", decl.DisplayName, err)
		}
		writes = append(writes, Write{Field: decl.DisplayName, Value: value})
		if hooks.OnWrite != nil {
			hooks.OnWrite(decl.DisplayName, value)
		}
	}
	return writes, nil
}

// coerce converts the record value for decl to its declared type. Number and
// DateTime both store numerically, DateTime as epoch milliseconds; all other
// types store as strings. Values that do not coerce are treated as absent.
func coerce(rec xhs.NoteRecord, decl xhs.FieldDeclaration) (any, bool) {
	switch decl.Type {
	case xhs.FieldNumber:
		f, ok := rec.Number(decl.Key)
		if !ok {
			return nil, false
		}
		return f, true
	case xhs.FieldDateTime:
		f, ok := rec.Number(decl.Key)
		if !ok {
			return nil, false
		}
		return int64(f), true
	default:
		s, ok := rec.String(decl.Key)
		if !ok {
			return nil, false
		}
		return s, true
	}
}
