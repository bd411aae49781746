package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aelexs/todoclient/internal/domain"
)

func TestTimeoutContracts(t *testing.T) {
	// Request timeout sits inside the 10-30s hardening window.
	assert.GreaterOrEqual(t, domain.DefaultRequestTimeout.Seconds(), 10.0)
	assert.LessOrEqual(t, domain.DefaultRequestTimeout.Seconds(), 30.0)

	// Logout never waits longer than a regular request.
	assert.Less(t, domain.DefaultLogoutTimeout, domain.DefaultRequestTimeout)

	// Keep-alive must run more often than the refresh window, or tokens can
	// lapse between ticks.
	assert.Less(t, domain.DefaultKeepAliveInterval, domain.DefaultRefreshThreshold)
}
