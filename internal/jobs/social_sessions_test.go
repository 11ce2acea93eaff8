package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/prospectus/internal/models"
)

func TestSessionKeyDeterministicID(t *testing.T) {
	posted := time.Date(2026, 8, 24, 13, 47, 12, 0, time.UTC)
	key := sessionKey{
		ticker:   "AMD",
		platform: models.PlatformStockTwits,
		start:    posted.Truncate(sessionWindow),
	}

	assert.Equal(t, "AMD-stocktwits-20260824T1200", key.sessionID())

	// Another post later in the same window lands in the same session.
	later := time.Date(2026, 8, 24, 15, 59, 59, 0, time.UTC)
	keyLater := sessionKey{
		ticker:   "AMD",
		platform: models.PlatformStockTwits,
		start:    later.Truncate(sessionWindow),
	}
	assert.Equal(t, key.sessionID(), keyLater.sessionID())

	// The next window gets its own session.
	next := time.Date(2026, 8, 24, 16, 0, 0, 0, time.UTC)
	keyNext := sessionKey{
		ticker:   "AMD",
		platform: models.PlatformStockTwits,
		start:    next.Truncate(sessionWindow),
	}
	assert.NotEqual(t, key.sessionID(), keyNext.sessionID())
}

func TestSessionKeySeparatesPlatforms(t *testing.T) {
	start := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	st := sessionKey{ticker: "AMD", platform: models.PlatformStockTwits, start: start}
	rd := sessionKey{ticker: "AMD", platform: models.PlatformReddit, start: start}

	assert.NotEqual(t, st.sessionID(), rd.sessionID())
}
