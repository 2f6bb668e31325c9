package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionTokenProperties(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok := NewSessionToken()
		assert.Len(t, tok, 64) // 32 bytes hex encoded
		_, dup := seen[tok]
		assert.False(t, dup, "token repeated")
		seen[tok] = struct{}{}
	}
}

func TestStopwatch(t *testing.T) {
	sw := NewStopwatch()
	time.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, sw.ElapsedMilliseconds(), 9.0)

	sw.Reset()
	assert.Less(t, sw.ElapsedMilliseconds(), 9.0)
}

func TestMonotonicMillisIsNonDecreasing(t *testing.T) {
	a := MonotonicMillis()
	time.Sleep(2 * time.Millisecond)
	b := MonotonicMillis()
	assert.GreaterOrEqual(t, b, a)
}

func TestVec2(t *testing.T) {
	a := Vec2{X: 3, Y: 4}
	assert.InDelta(t, 5.0, float64(a.Magnitude()), 1e-6)
	assert.Equal(t, Vec2{X: 4, Y: 6}, a.Add(Vec2{X: 1, Y: 2}))
	assert.Equal(t, Vec2{X: 6, Y: 8}, a.Scale(2))
	assert.InDelta(t, 5.0, float64(Distance(Vec2{}, a)), 1e-6)
}

func TestRandIntBounds(t *testing.T) {
	for i := 0; i < 200; i++ {
		v := RandInt(-3, 7)
		assert.GreaterOrEqual(t, v, -3)
		assert.LessOrEqual(t, v, 7)
	}
	assert.Equal(t, 5, RandInt(5, 5))
	assert.Equal(t, 5, RandInt(5, 2))
}
