package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SirMem/xhs-frontend/internal/table/tablemem"
	"github.com/SirMem/xhs-frontend/internal/xhs"
)

func sampleRecord() xhs.NoteRecord {
	return xhs.NoteRecord{
		"note_id":     "abc123",
		"title":       "周末探店",
		"nickname":    "小王",
		"desc":        "好吃不贵",
		"liked_count": "1234",
		"time":        float64(1700000000000),
	}
}

func TestApplyCreatesMissingFieldsWithDeclaredType(t *testing.T) {
	t.Parallel()

	tbl := tablemem.New()
	r := New(tbl, nil)

	var created []string
	writes, err := r.Apply(context.Background(), "rec1", sampleRecord(), Declarations, Hooks{
		OnCreate: func(name string) { created = append(created, name) },
	})
	require.NoError(t, err)
	require.Len(t, writes, 5)
	require.Len(t, created, 5)

	ft, ok := tbl.FieldType("点赞数")
	require.True(t, ok)
	require.Equal(t, xhs.FieldNumber, ft)

	// Numeric cast of a string counter.
	v, ok := tbl.Written("点赞数", "rec1")
	require.True(t, ok)
	require.Equal(t, float64(1234), v)

	// DateTime stored as epoch-millisecond integer.
	v, ok = tbl.Written("发布时间", "rec1")
	require.True(t, ok)
	require.Equal(t, int64(1700000000000), v)

	v, ok = tbl.Written("笔记标题", "rec1")
	require.True(t, ok)
	require.Equal(t, "周末探店", v)
}

func TestApplyIsIdempotent(t *testing.T) {
	t.Parallel()

	tbl := tablemem.New()
	r := New(tbl, nil)
	ctx := context.Background()

	first, err := r.Apply(ctx, "rec1", sampleRecord(), Declarations, Hooks{})
	require.NoError(t, err)

	var created []string
	second, err := r.Apply(ctx, "rec1", sampleRecord(), Declarations, Hooks{
		OnCreate: func(name string) { created = append(created, name) },
	})
	require.NoError(t, err)

	// Overwrite semantics: same writes, no duplicate columns.
	require.Equal(t, first, second)
	require.Empty(t, created)
}

func TestApplySkipsAbsentAndMistypedValues(t *testing.T) {
	t.Parallel()

	tbl := tablemem.New()
	r := New(tbl, nil)

	rec := xhs.NoteRecord{
		"title":       "只有标题",
		"desc":        "",
		"liked_count": "not-a-number",
	}
	writes, err := r.Apply(context.Background(), "rec1", rec, Declarations, Hooks{})
	require.NoError(t, err)
	require.Len(t, writes, 1)
	require.Equal(t, "笔记标题", writes[0].Field)

	_, ok := tbl.Written("点赞数", "rec1")
	require.False(t, ok)
	_, ok = tbl.Written("笔记描述", "rec1")
	require.False(t, ok)
}

func TestApplySelectedSubset(t *testing.T) {
	t.Parallel()

	tbl := tablemem.New()
	r := New(tbl, nil)

	decls := Select([]string{"title", "liked_count"})
	require.Len(t, decls, 2)

	writes, err := r.Apply(context.Background(), "rec1", sampleRecord(), decls, Hooks{})
	require.NoError(t, err)
	require.Len(t, writes, 2)

	_, ok := tbl.Written("博主昵称", "rec1")
	require.False(t, ok)
}

// failingTable wraps the memory table and fails writes to one column.
type failingTable struct {
	*tablemem.Table
	failName string
}

type failingHandle struct {
	xhs.FieldHandle
}

func (failingHandle) SetValue(context.Context, string, any) error {
	return errors.New("write rejected")
}

func (f *failingTable) FieldByName(ctx context.Context, name string) (xhs.FieldHandle, error) {
	h, err := f.Table.FieldByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if name == f.failName {
		return failingHandle{h}, nil
	}
	return h, nil
}

func TestApplyCommitsEarlierWritesOnLaterFailure(t *testing.T) {
	t.Parallel()

	mem := tablemem.New()
	ctx := context.Background()
	for _, d := range Declarations {
		_, err := mem.AddField(ctx, xhs.FieldSpec{Type: d.Type, Name: d.DisplayName})
		require.NoError(t, err)
	}
	tbl := &failingTable{Table: mem, failName: "点赞数"}
	r := New(tbl, nil)

	writes, err := r.Apply(ctx, "rec1", sampleRecord(), Declarations, Hooks{})
	require.Error(t, err)

	// title, nickname, desc committed; liked_count failed; time never ran.
	require.Len(t, writes, 3)
	_, ok := mem.Written("笔记标题", "rec1")
	require.True(t, ok)
	_, ok = mem.Written("发布时间", "rec1")
	require.False(t, ok)
}

func TestApplyPropagatesNonNotFoundLookupError(t *testing.T) {
	t.Parallel()

	tbl := &erroringTable{err: errors.New("table unavailable")}
	r := New(tbl, nil)
	_, err := r.Apply(context.Background(), "rec1", sampleRecord(), Declarations, Hooks{})
	require.ErrorContains(t, err, "table unavailable")
	require.Zero(t, tbl.addCalls)
}

type erroringTable struct {
	err      error
	addCalls int
}

func (e *erroringTable) Field(context.Context, string) (xhs.FieldHandle, error) {
	return nil, e.err
}

func (e *erroringTable) FieldByName(context.Context, string) (xhs.FieldHandle, error) {
	return nil, e.err
}

func (e *erroringTable) AddField(context.Context, xhs.FieldSpec) (string, error) {
	e.addCalls++
	return "", e.err
}

func (e *erroringTable) FieldMetaListByType(context.Context, xhs.FieldType) ([]xhs.FieldMeta, error) {
	return nil, e.err
}

func (e *erroringTable) Selection(context.Context) (xhs.Selection, error) {
	return xhs.Selection{}, e.err
}
