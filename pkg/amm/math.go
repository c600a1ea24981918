package amm

import (
	"fmt"
	"math/big"
)

// Q64.96 fixed-point price representation.
// sqrtPriceX96 = sqrt(price) * 2^96, price = amount of asset A per asset B.
// Selling asset A into the pool moves price up; selling asset B moves it down.
var (
	Q96  = new(big.Int).Lsh(big.NewInt(1), 96)  // 2^96
	Q192 = new(big.Int).Lsh(big.NewInt(1), 192) // 2^192
)

// Global tick bounds. price = 1.0001^tick, so these cover roughly
// 2^-64 .. 2^64 price ratios (standard CLMM range).
const (
	MinTick int32 = -443636
	MaxTick int32 = 443636
)

// Basis-point denominator used for all fee math.
const BpsDenominator = 10_000

// MulDiv returns floor(a * b / denom). The intermediate product is
// arbitrary-width, so a and b may both be full 256-bit values without
// overflow. denom must be nonzero.
func MulDiv(a, b, denom *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, denom)
}

// MulDivRoundingUp returns ceil(a * b / denom).
func MulDivRoundingUp(a, b, denom *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	q, r := p.QuoRem(p, denom, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// tickBase is 1.0001 at high precision, shared by the tick conversions.
const sqrtPrecision = 300

func tickBase() *big.Float {
	return new(big.Float).SetPrec(sqrtPrecision).SetFloat64(1.0001)
}

// TickToSqrtPriceX96 converts a tick index to its Q64.96 sqrt price.
// Tick 0 maps to exactly 2^96 (1:1 price); the mapping is strictly
// monotonic over [MinTick, MaxTick].
func TickToSqrtPriceX96(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("tick %d out of range [%d, %d]", tick, MinTick, MaxTick)
	}
	if tick == 0 {
		return new(big.Int).Set(Q96), nil
	}

	abs := tick
	if abs < 0 {
		abs = -abs
	}

	// ratio = 1.0001^|tick| by square-and-multiply.
	ratio := new(big.Float).SetPrec(sqrtPrecision).SetInt64(1)
	base := tickBase()
	for n := abs; n > 0; n >>= 1 {
		if n&1 == 1 {
			ratio.Mul(ratio, base)
		}
		base.Mul(base, base)
	}
	if tick < 0 {
		ratio.Quo(new(big.Float).SetPrec(sqrtPrecision).SetInt64(1), ratio)
	}

	sqrt := new(big.Float).SetPrec(sqrtPrecision).Sqrt(ratio)
	sqrt.Mul(sqrt, new(big.Float).SetPrec(sqrtPrecision).SetInt(Q96))

	out, _ := sqrt.Int(nil)
	return out, nil
}

// TickAtSqrtPrice returns the largest tick whose sqrt price is <= sqrtPriceX96.
// Inverse of TickToSqrtPriceX96 up to tick granularity; implemented as a
// binary search over the monotonic forward mapping.
func TickAtSqrtPrice(sqrtPriceX96 *big.Int) (int32, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0, fmt.Errorf("sqrt price must be positive")
	}
	lowest, _ := TickToSqrtPriceX96(MinTick)
	highest, _ := TickToSqrtPriceX96(MaxTick)
	if sqrtPriceX96.Cmp(lowest) < 0 || sqrtPriceX96.Cmp(highest) > 0 {
		return 0, fmt.Errorf("sqrt price outside global tick bounds")
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		p, err := TickToSqrtPriceX96(mid)
		if err != nil {
			return 0, err
		}
		if p.Cmp(sqrtPriceX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// AmountADelta returns the asset-A amount needed to move price between
// sqrtLower and sqrtUpper at the given liquidity:
//
//	deltaA = liquidity * (sqrtUpper - sqrtLower) / 2^96
//
// Asset A is the side whose balance grows as price rises.
func AmountADelta(sqrtLower, sqrtUpper, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtLower.Cmp(sqrtUpper) > 0 {
		sqrtLower, sqrtUpper = sqrtUpper, sqrtLower
	}
	diff := new(big.Int).Sub(sqrtUpper, sqrtLower)
	if roundUp {
		return MulDivRoundingUp(liquidity, diff, Q96)
	}
	return MulDiv(liquidity, diff, Q96)
}

// AmountBDelta returns the asset-B amount released (or required) when price
// moves between sqrtLower and sqrtUpper:
//
//	deltaB = liquidity * 2^96 * (sqrtUpper - sqrtLower) / (sqrtUpper * sqrtLower)
//
// Computed as two sequential mul-divs so no single step needs more than the
// full-width product of two operands.
func AmountBDelta(sqrtLower, sqrtUpper, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtLower.Cmp(sqrtUpper) > 0 {
		sqrtLower, sqrtUpper = sqrtUpper, sqrtLower
	}
	diff := new(big.Int).Sub(sqrtUpper, sqrtLower)
	numerator := new(big.Int).Lsh(liquidity, 96)
	if roundUp {
		inner := MulDivRoundingUp(numerator, diff, sqrtUpper)
		q, r := inner.QuoRem(inner, sqrtLower, new(big.Int))
		if r.Sign() != 0 {
			q.Add(q, big.NewInt(1))
		}
		return q
	}
	inner := MulDiv(numerator, diff, sqrtUpper)
	return inner.Quo(inner, sqrtLower)
}

// NextSqrtPriceFromAInput returns the price after amountIn of asset A is
// added to the pool (price moves up). Rounds down so the price never
// overshoots what the input pays for.
func NextSqrtPriceFromAInput(sqrtPriceX96, liquidity, amountIn *big.Int) *big.Int {
	step := MulDiv(amountIn, Q96, liquidity)
	return new(big.Int).Add(sqrtPriceX96, step)
}

// NextSqrtPriceFromBInput returns the price after amountIn of asset B is
// added to the pool (price moves down). Rounds up so the pool is never
// short on the output side:
//
//	sqrtNext = ceil(liquidity * 2^96 * sqrtP / (liquidity * 2^96 + amountIn * sqrtP))
func NextSqrtPriceFromBInput(sqrtPriceX96, liquidity, amountIn *big.Int) *big.Int {
	numerator := new(big.Int).Lsh(liquidity, 96)
	product := new(big.Int).Mul(amountIn, sqrtPriceX96)
	denom := new(big.Int).Add(numerator, product)
	return MulDivRoundingUp(numerator, sqrtPriceX96, denom)
}

// ConvertAtPrice converts amount at a fixed sqrt price with no liquidity
// interaction. Used for fills when the pool has no active liquidity or the
// start and target prices coincide. The conversion is two sequential
// mul-divs through Q96 so the intermediate stays within a 256-bit-safe
// computation path.
//
// Selling A divides by price (A -> B); selling B multiplies (B -> A).
func ConvertAtPrice(amount, sqrtPriceX96 *big.Int, dir Direction) *big.Int {
	if dir == SellA {
		inner := MulDiv(amount, Q96, sqrtPriceX96)
		return MulDiv(inner, Q96, sqrtPriceX96)
	}
	inner := MulDiv(amount, sqrtPriceX96, Q96)
	return MulDiv(inner, sqrtPriceX96, Q96)
}
