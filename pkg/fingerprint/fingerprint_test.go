package fingerprint_test

import (
	"testing"
	"time"

	"github.com/firmahq/firma/pkg/fingerprint"
	"github.com/stretchr/testify/assert"
)

func TestGenerate_Deterministic(t *testing.T) {
	gen := fingerprint.New("unit-test-fingerprint-secret")
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := gen.Generate("0612345678", "203.0.113.7", "Mozilla/5.0", ts)
	b := gen.Generate("0612345678", "203.0.113.7", "Mozilla/5.0", ts)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded SHA-256
}

func TestGenerate_TimestampChangesToken(t *testing.T) {
	gen := fingerprint.New("unit-test-fingerprint-secret")
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a := gen.Generate("0612345678", "203.0.113.7", "Mozilla/5.0", ts)
	b := gen.Generate("0612345678", "203.0.113.7", "Mozilla/5.0", ts.Add(time.Millisecond))

	assert.NotEqual(t, a, b)
}

func TestGenerate_InputsAreDelimited(t *testing.T) {
	gen := fingerprint.New("unit-test-fingerprint-secret")
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Shifting a character across field boundaries must not collide
	a := gen.Generate("061234567", "8203.0.113.7", "Mozilla/5.0", ts)
	b := gen.Generate("0612345678", "203.0.113.7", "Mozilla/5.0", ts)

	assert.NotEqual(t, a, b)
}

func TestVerify(t *testing.T) {
	gen := fingerprint.New("unit-test-fingerprint-secret")
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	token := gen.Generate("0612345678", "203.0.113.7", "Mozilla/5.0", ts)

	assert.True(t, gen.Verify(token, "0612345678", "203.0.113.7", "Mozilla/5.0", ts))
	assert.False(t, gen.Verify(token, "0612345679", "203.0.113.7", "Mozilla/5.0", ts))
	assert.False(t, gen.Verify(token, "0612345678", "203.0.113.7", "Mozilla/5.0", ts.Add(time.Second)))
}

func TestVerify_DifferentSecrets(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	token := fingerprint.New("secret-one-0123456789").Generate("0612345678", "203.0.113.7", "UA", ts)

	assert.False(t, fingerprint.New("secret-two-0123456789").Verify(token, "0612345678", "203.0.113.7", "UA", ts))
}
