package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		name     string
		override string
		want     string
	}{
		{"no override", "", "/data"},
		{"memory", ":memory:", ":memory:"},
		{"absolute", "/var/db", "/var/db"},
		{"relative", "nested/dir", "/data/nested/dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ResolveLocation("/data", tt.override))
		})
	}
}

func TestDBPath(t *testing.T) {
	require.Equal(t, "/data/app.db", DBPath("/data", "app.db", ""))
	require.Equal(t, ":memory:", DBPath("/data", "app.db", ":memory:"))
	require.Equal(t, "/elsewhere/other.db", DBPath("/data", "app.db", "/elsewhere/other.db"))
	require.Equal(t, "/data/sub/other.db", DBPath("/data", "app.db", "sub/other.db"))
}

func TestFilePath(t *testing.T) {
	require.Equal(t, "/data/app.db", FilePath("/data", "app.db"))
	require.Equal(t, ":memory:", FilePath(":memory:", "app.db"))
}

func TestDBPathProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := "/" + rapid.StringMatching(`[a-z]{1,8}(/[a-z]{1,8}){0,3}`).Draw(t, "base")
		name := rapid.StringMatching(`[a-z][a-z0-9_]{0,10}\.db`).Draw(t, "name")
		rel := rapid.StringMatching(`[a-z][a-z0-9_./]{0,16}`).Draw(t, "rel")
		abs := "/" + rel

		require.Equal(t, base+"/"+name, DBPath(base, name, ""))
		require.Equal(t, MemoryLocation, DBPath(base, name, MemoryLocation))
		require.Equal(t, abs, DBPath(base, name, abs))
		require.Equal(t, base+"/"+rel, DBPath(base, name, rel))
	})
}
