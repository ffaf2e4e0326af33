package commitment

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"a",
		"hunter2",
		strings.Repeat("x", 24),
		strings.Repeat("x", 25),
		strings.Repeat("y", 48),
	}
	for _, password := range cases {
		seg0, seg1, err := Split(password)
		require.NoError(t, err, "password %q", password)
		assert.Equal(t, password, seg0+seg1)
		assert.LessOrEqual(t, len(seg0), 24)
		assert.LessOrEqual(t, len(seg1), 24)
		if len(password) <= 24 {
			assert.Empty(t, seg1)
		}
	}
}

func TestSplitTooLong(t *testing.T) {
	_, _, err := Split(strings.Repeat("z", 49))
	assert.ErrorIs(t, err, ErrValueTooLong)
}

func TestSegmentEncodingRoundTrip(t *testing.T) {
	cases := []string{
		"a",
		"hunter2",
		"\x01\x02\x03", // codes below 100 rely on zero padding
		"!P4ss wi7h sp3c1al chars",
		strings.Repeat("W", 24),
	}
	for _, segment := range cases {
		n, err := SegmentToInt(segment)
		require.NoError(t, err)
		assert.Equal(t, segment, IntToSegment(n), "segment %q", segment)
	}
}

func TestSegmentToIntEmpty(t *testing.T) {
	n, err := SegmentToInt("")
	require.NoError(t, err)
	assert.Zero(t, n.Sign())
}

func TestSegmentToIntEncoding(t *testing.T) {
	// "ab" -> 097098
	n, err := SegmentToInt("ab")
	require.NoError(t, err)
	assert.Equal(t, "97098", n.String())
}

func TestSegmentToIntTooLong(t *testing.T) {
	_, err := SegmentToInt(strings.Repeat("a", 25))
	assert.ErrorIs(t, err, ErrValueTooLong)
}

func TestCommitDeterministic(t *testing.T) {
	seg0 := big.NewInt(97098099)
	seg1 := big.NewInt(0)

	first := Commit(seg0, seg1)
	for i := 0; i < 5; i++ {
		assert.Zero(t, first.Cmp(Commit(seg0, seg1)))
	}

	// Different inputs must not collide trivially.
	other := Commit(big.NewInt(97098100), seg1)
	assert.NotZero(t, first.Cmp(other))
}

func TestFromPasswordEmptyIsSentinelZero(t *testing.T) {
	c, err := FromPassword("")
	require.NoError(t, err)
	assert.Zero(t, c.Sign())
}

func TestFromPasswordMatchesManualDerivation(t *testing.T) {
	password := "correct horse battery staple" // 28 chars, spans two segments

	seg0, seg1, err := Split(password)
	require.NoError(t, err)
	n0, err := SegmentToInt(seg0)
	require.NoError(t, err)
	n1, err := SegmentToInt(seg1)
	require.NoError(t, err)

	got, err := FromPassword(password)
	require.NoError(t, err)
	assert.Zero(t, got.Cmp(Commit(n0, n1)))
}
