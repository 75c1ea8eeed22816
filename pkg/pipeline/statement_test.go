package pipeline

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountPlaceholders(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		style PlaceholderStyle
		want  int
	}{
		{"none", "select * from goal", PlaceholderDollar, 0},
		{"two ordinals", "select * from goal where id = $1 and name = $2", PlaceholderDollar, 2},
		{"repeated ordinal", "select * from goal where id = $1 or parent = $1", PlaceholderDollar, 1},
		{"highest ordinal wins", "update goal set name = $2 where id = $10", PlaceholderDollar, 10},
		{"string literal skipped", "select '$1', 'it''s $2' from goal where id = $1", PlaceholderDollar, 1},
		{"quoted identifier skipped", `select "$3" from goal where id = $1`, PlaceholderDollar, 1},
		{"line comment skipped", "select * from goal -- where id = $4\nwhere id = $1", PlaceholderDollar, 1},
		{"block comment skipped", "select /* $9 */ * from goal where id = $1", PlaceholderDollar, 1},
		{"dollar quoted body skipped", "do $$ begin perform $5; end $$", PlaceholderDollar, 0},
		{"tagged dollar quote skipped", "select $fn$ $7 $fn$, $1", PlaceholderDollar, 1},
		{"question marks", "insert into goal (id, name) values (?, ?)", PlaceholderQuestion, 2},
		{"question in literal skipped", "select '?' from goal where id = ?", PlaceholderQuestion, 1},
		{"trailing line comment", "select $1 -- done", PlaceholderDollar, 1},
		{"escape string with backslash quote", `select * from goal where name = E'it\'s $3' and id = $1`, PlaceholderDollar, 1},
		{"escape string lower case prefix", `select e'a\\' || $2, $1`, PlaceholderDollar, 2},
		{"backslash in plain literal", `select 'C:\' || name from goal where id = $1`, PlaceholderDollar, 1},
		{"dollar inside identifier", "select a$1 from goal where id = $1 and b$2 = 0", PlaceholderDollar, 1},
		{"identifier only", "select a$1 from goal", PlaceholderDollar, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := countPlaceholders(tc.sql, tc.style)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestHasKeyword(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"insert into goal (name) values ($1) RETURNING id", true},
		{"insert into goal (name) values ($1)\nreturning\tid", true},
		{"insert into goal_audit (returning_at) values ($1)", false},
		{"insert into goal (name) values ('returning')", false},
		{`insert into goal ("returning") values ($1)`, false},
		{"insert into goal (name) values ($1) -- returning id", false},
		{"insert into goal (name) values (E'\\' returning')", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, HasKeyword(tc.sql, "returning"), tc.sql)
	}
}

func TestCountPlaceholdersRejectsMalformedSQL(t *testing.T) {
	for _, sql := range []string{
		"select 'unterminated",
		"select /* open comment",
		"select $$ never closed",
		"select $0",
	} {
		_, err := countPlaceholders(sql, PlaceholderDollar)
		assert.Error(t, err, sql)
	}

	_, err := countPlaceholders("select 1", PlaceholderStyle("named"))
	assert.Error(t, err)
}

func TestStatementValidate(t *testing.T) {
	const sql = "select * from goal where id = $1 and name = $2"

	tests := []struct {
		name    string
		stmt    Statement
		wantErr bool
	}{
		{"exact", NewStatement(sql, 1, "a"), false},
		{"too few", NewStatement(sql, 1), true},
		{"too many", NewStatement(sql, 1, "a", true), true},
		{"explicit indices", NewStatement(sql).Bind(1, "a").Bind(0, 1), false},
		{"duplicate index", NewStatement(sql).Bind(0, 1).Bind(0, 2), true},
		{"gap", NewStatement(sql).Bind(0, 1).Bind(2, "a"), true},
		{"negative index", NewStatement(sql).Bind(-1, 1).Bind(0, 2), true},
		{"null counts as binding", NewStatement(sql, 1).BindNull(1, reflect.TypeFor[string]()), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.stmt.Validate(PlaceholderDollar)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBinding)
			stage, _ := StageOf(err)
			assert.Equal(t, StageBind, stage)
		})
	}
}

func TestStatementIsImmutable(t *testing.T) {
	base := NewStatement("select $1, $2", 1)
	withSecond := base.Bind(1, "x")
	withGenerated := withSecond.ReturnGeneratedValues("id")

	assert.Equal(t, 1, base.Bindings())
	assert.Equal(t, 2, withSecond.Bindings())
	assert.Error(t, base.Validate(PlaceholderDollar))
	assert.NoError(t, withSecond.Validate(PlaceholderDollar))
	assert.Empty(t, withSecond.generated)
	assert.Equal(t, []string{"id"}, withGenerated.generated)
}

func TestNullBindingsCarryDeclaredType(t *testing.T) {
	var missing *int64
	stmt := NewStatement("insert into t values ($1, $2, $3, $4)", nil, missing, Null[string](), "v")

	require.Len(t, stmt.bindings, 4)
	assert.True(t, stmt.bindings[0].null)
	assert.Equal(t, reflect.TypeFor[any](), stmt.bindings[0].declared)
	assert.True(t, stmt.bindings[1].null)
	assert.Equal(t, reflect.TypeFor[int64](), stmt.bindings[1].declared)
	assert.True(t, stmt.bindings[2].null)
	assert.Equal(t, reflect.TypeFor[string](), stmt.bindings[2].declared)
	assert.False(t, stmt.bindings[3].null)
	assert.Equal(t, "v", stmt.bindings[3].value)
}

func TestStatementExecuteBindsInIndexOrder(t *testing.T) {
	src, _ := newFake()
	src.on("select $1, $2", outcome{})

	stmt := NewStatement("select $1, $2").Bind(1, "b").BindNull(0, nil)
	_, err := stmt.execute(t.Context(), src.conn)
	require.NoError(t, err)

	assert.Equal(t, []string{"0=null(interface {})", "1=b"}, src.conn.bindings["select $1, $2"])
}
