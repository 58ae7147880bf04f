package token

import (
	"errors"
	"strconv"
	"time"
)

// ParseExpiry converts the compact duration grammar used throughout the
// configuration surface into a [time.Duration]. Accepted forms: "30s",
// "15m", "1h", "7d", and a bare integer read as seconds.
func ParseExpiry(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty expiry")
	}

	unit := time.Second
	digits := s

	switch s[len(s)-1] {
	case 's':
		digits = s[:len(s)-1]
	case 'm':
		unit = time.Minute
		digits = s[:len(s)-1]
	case 'h':
		unit = time.Hour
		digits = s[:len(s)-1]
	case 'd':
		unit = 24 * time.Hour
		digits = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid expiry: " + s)
	}

	return time.Duration(n) * unit, nil
}
