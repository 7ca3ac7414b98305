package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const createTrigger = `CREATE TEMP TRIGGER t AFTER INSERT ON a BEGIN
  INSERT INTO b VALUES (new.v);
  DELETE FROM c;
END;`

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []sqlStatement
	}{
		{
			name:  "single",
			query: "SELECT 1",
			want:  []sqlStatement{{SQL: "SELECT 1"}},
		},
		{
			name:  "trailing semicolon and whitespace",
			query: "SELECT 1;  \n",
			want:  []sqlStatement{{SQL: "SELECT 1;"}},
		},
		{
			name:  "several",
			query: "CREATE TABLE a (v); INSERT INTO a VALUES (?);SELECT * FROM a",
			want: []sqlStatement{
				{SQL: "CREATE TABLE a (v);"},
				{SQL: "INSERT INTO a VALUES (?);", Params: 1},
				{SQL: "SELECT * FROM a"},
			},
		},
		{
			name:  "semicolons inside strings and identifiers",
			query: `INSERT INTO "a;b" VALUES ('x;''y', [c;d], ` + "`e;f`" + `); SELECT 2`,
			want: []sqlStatement{
				{SQL: `INSERT INTO "a;b" VALUES ('x;''y', [c;d], ` + "`e;f`" + `);`},
				{SQL: "SELECT 2"},
			},
		},
		{
			name:  "comments",
			query: "-- leading; comment\nSELECT 1; /* block; comment */ SELECT 2; -- tail",
			want: []sqlStatement{
				{SQL: "-- leading; comment\nSELECT 1;"},
				{SQL: "/* block; comment */ SELECT 2;"},
			},
		},
		{
			name:  "trigger body",
			query: createTrigger + " SELECT 1",
			want: []sqlStatement{
				{SQL: createTrigger},
				{SQL: "SELECT 1"},
			},
		},
		{
			name:  "parameter styles",
			query: "SELECT ?, ?; SELECT ?3, ?1; SELECT :a, @b, :a, $c",
			want: []sqlStatement{
				{SQL: "SELECT ?, ?;", Params: 2},
				{SQL: "SELECT ?3, ?1;", Params: 3},
				{SQL: "SELECT :a, @b, :a, $c", Params: 3},
			},
		},
		{
			name:  "only comments",
			query: "-- nothing\n/* here */ ;",
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, splitStatements(tt.query))
		})
	}
}
