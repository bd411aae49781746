package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aelexs/todoclient/internal/domain"
	"github.com/aelexs/todoclient/internal/domain/domaintest"
)

func TestRealClock(t *testing.T) {
	t.Run("returns current time", func(t *testing.T) {
		clock := domain.RealClock{}
		before := time.Now()
		got := clock.Now()
		after := time.Now()

		assert.False(t, got.Before(before), "clock.Now() should not be before reference time")
		assert.False(t, got.After(after), "clock.Now() should not be after reference time")
	})
}

func TestFakeClock(t *testing.T) {
	fixedTime := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("returns fixed time", func(t *testing.T) {
		clock := domaintest.NewFakeClock(fixedTime)
		assert.True(t, clock.Now().Equal(fixedTime))
	})

	t.Run("advance moves time forward", func(t *testing.T) {
		clock := domaintest.NewFakeClock(fixedTime)
		clock.Advance(4 * time.Minute)

		assert.True(t, clock.Now().Equal(fixedTime.Add(4*time.Minute)))
	})

	t.Run("set replaces time", func(t *testing.T) {
		clock := domaintest.NewFakeClock(fixedTime)
		later := fixedTime.Add(24 * time.Hour)
		clock.Set(later)

		assert.True(t, clock.Now().Equal(later))
	})
}

func TestFromUnix(t *testing.T) {
	got := domain.FromUnix(1767225600)

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}
