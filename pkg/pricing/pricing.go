// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Params describes one auction round: the price the round opened at, when it
// opened, how long the decay runs, and the price it decays to.
type Params struct {
	InitPrice  decimal.Decimal
	StartTime  time.Time
	Period     time.Duration
	FloorPrice decimal.Decimal
}

// Curve maps elapsed time within a round to a price. Implementations must be
// pure and monotonically non-increasing in elapsed time, with
// Price(0) == init and Price(period) == floor. The engine only consults the
// curve strictly inside the round; the boundary values are enforced by
// CurrentPrice itself.
type Curve interface {
	Price(init, floor decimal.Decimal, elapsed, period time.Duration) decimal.Decimal
}

// LinearCurve interpolates linearly from the init price down to the floor.
type LinearCurve struct{}

func (LinearCurve) Price(init, floor decimal.Decimal, elapsed, period time.Duration) decimal.Decimal {
	spread := init.Sub(floor)
	frac := decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(period)))
	return init.Sub(spread.Mul(frac))
}

// ExponentialCurve halves the distance to the floor every HalfLife.
type ExponentialCurve struct {
	HalfLife time.Duration
}

func (c ExponentialCurve) Price(init, floor decimal.Decimal, elapsed, period time.Duration) decimal.Decimal {
	half := c.HalfLife
	if half <= 0 {
		half = period / 4
	}
	factor := math.Exp2(-float64(elapsed) / float64(half))
	spread := init.Sub(floor)
	return floor.Add(spread.Mul(decimal.NewFromFloat(factor)))
}

// CurrentPrice returns the asking price for the round described by p at the
// given instant. Before the round opens it is the init price, after the decay
// period it is the floor, and in between the curve interpolates. The result
// never drops below the floor. A nil curve falls back to linear.
func CurrentPrice(p Params, curve Curve, now time.Time) decimal.Decimal {
	if curve == nil {
		curve = LinearCurve{}
	}
	if p.Period <= 0 || !now.After(p.StartTime) {
		return clampFloor(p.InitPrice, p.FloorPrice)
	}
	elapsed := now.Sub(p.StartTime)
	if elapsed >= p.Period {
		return p.FloorPrice
	}
	price := curve.Price(p.InitPrice, p.FloorPrice, elapsed, p.Period)
	return clampFloor(price, p.FloorPrice)
}

func clampFloor(price, floor decimal.Decimal) decimal.Decimal {
	if price.LessThan(floor) {
		return floor
	}
	return price
}
