package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseParam(t *testing.T) {
	require.Nil(t, parseParam("NULL"))
	require.Nil(t, parseParam("null"))
	require.Equal(t, int64(42), parseParam("42"))
	require.Equal(t, -1.5, parseParam("-1.5"))
	require.Equal(t, "alice", parseParam("alice"))
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "NULL", formatValue(nil))
	require.Equal(t, "x'00FF'", formatValue([]byte{0, 255}))
	require.Equal(t, "7", formatValue(int64(7)))
	require.Equal(t, "text", formatValue("text"))
}
