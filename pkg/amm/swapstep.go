package amm

import "math/big"

// StepResult is the outcome of a single bounded swap step.
type StepResult struct {
	SqrtPriceNextX96 *big.Int // price after the step, never past the target
	AmountIn         *big.Int // input actually consumed (excluding fee)
	AmountOut        *big.Int // output produced
	FeeAmount        *big.Int // fee taken from the input side
}

// SwapStep computes a single exact-input swap step from sqrtCurrent toward
// sqrtTarget at the given liquidity, consuming at most amountRemaining of
// the input asset. The input asset is implied by the bound: a target above
// the current price consumes asset A, a target below consumes asset B.
//
// The step stops at whichever comes first: the target price or the point
// where amountRemaining is exhausted. AmountIn may therefore be less than
// amountRemaining when liquidity is deep, or the price may stop short of
// the target when it is not.
func SwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining *big.Int, feeBps uint32) StepResult {
	res := StepResult{
		SqrtPriceNextX96: new(big.Int).Set(sqrtTarget),
		AmountIn:         new(big.Int),
		AmountOut:        new(big.Int),
		FeeAmount:        new(big.Int),
	}
	cmp := sqrtTarget.Cmp(sqrtCurrent)
	if cmp == 0 || liquidity.Sign() == 0 || amountRemaining.Sign() <= 0 {
		// Nothing to move: coincident prices, empty pool, or no input.
		return res
	}
	priceUp := cmp > 0

	feeFactor := big.NewInt(int64(BpsDenominator - feeBps))
	remainingLessFee := MulDiv(amountRemaining, feeFactor, big.NewInt(BpsDenominator))

	// Input needed to reach the target exactly.
	var inputToTarget *big.Int
	if priceUp {
		inputToTarget = AmountADelta(sqrtCurrent, sqrtTarget, liquidity, true)
	} else {
		inputToTarget = AmountBDelta(sqrtTarget, sqrtCurrent, liquidity, true)
	}

	reachesTarget := remainingLessFee.Cmp(inputToTarget) >= 0
	if !reachesTarget {
		if priceUp {
			res.SqrtPriceNextX96 = NextSqrtPriceFromAInput(sqrtCurrent, liquidity, remainingLessFee)
		} else {
			res.SqrtPriceNextX96 = NextSqrtPriceFromBInput(sqrtCurrent, liquidity, remainingLessFee)
		}
	}

	next := res.SqrtPriceNextX96
	if reachesTarget {
		res.AmountIn = inputToTarget
	} else {
		res.AmountIn = new(big.Int).Set(remainingLessFee)
	}
	if priceUp {
		res.AmountOut = AmountBDelta(sqrtCurrent, next, liquidity, false)
	} else {
		res.AmountOut = AmountADelta(next, sqrtCurrent, liquidity, false)
	}

	if feeBps > 0 {
		if !reachesTarget {
			// Everything not consumed as principal is fee.
			res.FeeAmount = new(big.Int).Sub(amountRemaining, res.AmountIn)
		} else {
			res.FeeAmount = MulDivRoundingUp(res.AmountIn, big.NewInt(int64(feeBps)), feeFactor)
		}
	}
	return res
}
