package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByNameKnownPresets(t *testing.T) {
	for _, name := range []string{"turk-telekom", "vodafone", "superonline", "aggressive"} {
		p, ok := ByName(name)
		require.True(t, ok, "preset %q should resolve", name)
		assert.Equal(t, name, p.Name)
		assert.True(t, p.ForceSmallMSS)
		assert.True(t, p.DisableWriteCoalescing)
	}
}

func TestByNameUnknown(t *testing.T) {
	_, ok := ByName("does-not-exist")
	assert.False(t, ok)
}

func TestNoneIsInert(t *testing.T) {
	p := None()
	assert.Equal(t, SNISplitNone, p.SNISplitMode)
	assert.Equal(t, HTTPHostSplitNone, p.HTTPHostSplitMode)
	assert.False(t, p.ForceSmallMSS)
	assert.False(t, p.DisableWriteCoalescing)
	assert.Empty(t, p.ExtraSplits)
}

func TestAggressiveMatchesWorkedExample(t *testing.T) {
	// Spec scenario 1: aggressive preset against a 517-byte discord.com
	// ClientHello with the hostname at absolute offset 54, length 11.
	p := Aggressive()
	start, end := 54, 54+11
	mid := start + (end-start)/2
	assert.Equal(t, 59, mid)
	assert.Equal(t, []int{5}, p.ExtraSplits)
}
