package window

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/xpic/internal/capture"
)

func TestParseID(t *testing.T) {
	cases := []struct {
		in   string
		want capture.Handle
		text string
	}{
		{"1234", 1234, "1234"},
		{"0x3a00007", 0x3a00007, "0x3a00007"},
		{"0X1E5", 0x1e5, "0X1E5"},
		{"017", 0o17, "017"},
		{" 42 ", 42, "42"},
		{"4294967295", 0xffffffff, "4294967295"},
	}
	for _, c := range cases {
		id, err := ParseID(c.in)
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, id.Handle, c.in)
		require.Equal(t, c.text, id.Text, c.in)
	}
}

func TestParseIDRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "abc", "0xZZ", "-1", "4294967296", "12abc", "0"} {
		_, err := ParseID(in)
		require.Error(t, err, in)
		require.Contains(t, err.Error(), "bad argument")
	}
}

func TestParseIDRejectsNonCSpellings(t *testing.T) {
	for _, in := range []string{"1_0", "0x1_e5", "0b101", "0B1", "0o17", "0O17"} {
		_, err := ParseID(in)
		require.Error(t, err, in)
		require.Contains(t, err.Error(), "bad argument "+in)
	}
}

func TestParseIDsStopsAtFirstError(t *testing.T) {
	ids, err := ParseIDs([]string{"1", "0x2", "3"})
	require.NoError(t, err)
	require.Len(t, ids, 3)
	require.Equal(t, capture.Handle(2), ids[1].Handle)

	ids, err = ParseIDs([]string{"1", "nope", "3"})
	require.Error(t, err)
	require.Nil(t, ids)
	require.Contains(t, err.Error(), "nope")
}
