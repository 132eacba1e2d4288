package scoring

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MinStreakDuration is the floor below which a streak earns nothing.
// It keeps trivial lock/unlock noise (pocket checks) from earning points.
const MinStreakDuration = 60 * time.Second

// Points maps one offline interval to a point value:
// ln(duration in minutes) * 10, floored at zero, rounded to 2 decimal
// places. Pure and deterministic: scores are recomputed from scratch on
// every sync and must come out identical every time.
func Points(lockAt, unlockAt time.Time) decimal.Decimal {
	duration := unlockAt.Sub(lockAt)
	if duration < MinStreakDuration {
		return decimal.Zero
	}

	minutes := duration.Seconds() / 60
	points := math.Log(minutes) * 10
	if points < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(points).Round(2)
}
