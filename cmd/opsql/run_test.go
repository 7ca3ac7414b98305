package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, src string) (string, error) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script.js")
	require.NoError(t, os.WriteFile(script, []byte(src), 0o644))

	rootCmd.SetArgs([]string{"run", script, "--base-path", dir, "--log-level", "error"})
	return dir, rootCmd.Execute()
}

func TestRunWaitsForPromise(t *testing.T) {
	dir, err := runScript(t, `
const db = opsql.open({name: "app.db"});
db.executeAsync("CREATE TABLE t (v INTEGER)")
	.then(() => db.executeBatchAsync([["INSERT INTO t VALUES (?)", [[1], [2]]]]));
`)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
}

func TestRunReportsRejection(t *testing.T) {
	_, err := runScript(t, `
const db = opsql.open({name: "app.db"});
db.executeAsync("SELECT * FROM missing");
`)
	require.ErrorContains(t, err, "script rejected")
	require.ErrorContains(t, err, "no such table: missing")
}

func TestRunReportsSyntaxErrors(t *testing.T) {
	_, err := runScript(t, `this is not javascript`)
	require.Error(t, err)
}
