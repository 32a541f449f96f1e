package memcachead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpiration(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	assert.EqualValues(t, 0, expiration(0, now), "no expiry")
	assert.EqualValues(t, 0, expiration(-5, now))
	assert.EqualValues(t, 86400, expiration(86400, now))
	assert.EqualValues(t, maxRelativeTTL, expiration(maxRelativeTTL, now))

	sixtyDays := 60 * 24 * 3600
	assert.EqualValues(t, now.Unix()+int64(sixtyDays), expiration(sixtyDays, now), "long TTLs become absolute")
}

func TestKeyReplacesSpaces(t *testing.T) {
	assert.Equal(t, "trip:geo:myrtle_beach", key("geo:myrtle beach"))
}
