package amm

import (
	"math/big"
	"testing"
)

func TestSwapStepReachesTarget(t *testing.T) {
	liquidity := bigPow10(20)
	sqrtCurrent := new(big.Int).Set(Q96)
	sqrtTarget, _ := TickToSqrtPriceX96(100)

	// Far more input than the segment needs: the step stops at the target.
	amountIn := bigPow10(21)
	res := SwapStep(sqrtCurrent, sqrtTarget, liquidity, amountIn, 0)

	if res.SqrtPriceNextX96.Cmp(sqrtTarget) != 0 {
		t.Errorf("price stopped at %s, want target %s", res.SqrtPriceNextX96, sqrtTarget)
	}
	if res.AmountIn.Cmp(amountIn) >= 0 {
		t.Errorf("consumed %s, should be less than the cap %s", res.AmountIn, amountIn)
	}
	want := AmountADelta(sqrtCurrent, sqrtTarget, liquidity, true)
	if res.AmountIn.Cmp(want) != 0 {
		t.Errorf("consumed %s, want segment input %s", res.AmountIn, want)
	}
	if res.AmountOut.Sign() <= 0 {
		t.Error("expected positive output")
	}
	if res.FeeAmount.Sign() != 0 {
		t.Errorf("zero-fee step took fee %s", res.FeeAmount)
	}
}

func TestSwapStepPartial(t *testing.T) {
	liquidity := bigPow10(24)
	sqrtCurrent := new(big.Int).Set(Q96)
	sqrtTarget, _ := TickToSqrtPriceX96(1000)

	// Input too small to push the price all the way to the target.
	amountIn := bigPow10(18)
	res := SwapStep(sqrtCurrent, sqrtTarget, liquidity, amountIn, 0)

	if res.SqrtPriceNextX96.Cmp(sqrtTarget) >= 0 {
		t.Error("price should stop short of the target")
	}
	if res.SqrtPriceNextX96.Cmp(sqrtCurrent) <= 0 {
		t.Error("price should have moved up")
	}
	if res.AmountIn.Cmp(amountIn) != 0 {
		t.Errorf("partial step consumed %s, want the full cap %s", res.AmountIn, amountIn)
	}
	if res.AmountOut.Sign() <= 0 {
		t.Error("expected positive output")
	}
}

func TestSwapStepDownward(t *testing.T) {
	liquidity := bigPow10(20)
	sqrtCurrent, _ := TickToSqrtPriceX96(100)
	sqrtTarget := new(big.Int).Set(Q96)

	res := SwapStep(sqrtCurrent, sqrtTarget, liquidity, bigPow10(21), 0)
	if res.SqrtPriceNextX96.Cmp(sqrtTarget) != 0 {
		t.Errorf("downward step stopped at %s, want %s", res.SqrtPriceNextX96, sqrtTarget)
	}
	want := AmountBDelta(sqrtTarget, sqrtCurrent, liquidity, true)
	if res.AmountIn.Cmp(want) != 0 {
		t.Errorf("consumed %s, want %s", res.AmountIn, want)
	}
	wantOut := AmountADelta(sqrtTarget, sqrtCurrent, liquidity, false)
	if res.AmountOut.Cmp(wantOut) != 0 {
		t.Errorf("produced %s, want %s", res.AmountOut, wantOut)
	}
}

func TestSwapStepDegenerate(t *testing.T) {
	liquidity := bigPow10(20)
	amountIn := bigPow10(18)

	tests := []struct {
		name              string
		current, target   *big.Int
		liquidity, amount *big.Int
	}{
		{"coincident prices", Q96, new(big.Int).Set(Q96), liquidity, amountIn},
		{"zero liquidity", Q96, new(big.Int).Lsh(Q96, 1), new(big.Int), amountIn},
		{"zero input", Q96, new(big.Int).Lsh(Q96, 1), liquidity, new(big.Int)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := SwapStep(tt.current, tt.target, tt.liquidity, tt.amount, 0)
			if res.AmountIn.Sign() != 0 || res.AmountOut.Sign() != 0 {
				t.Errorf("degenerate step moved amounts: in=%s out=%s", res.AmountIn, res.AmountOut)
			}
		})
	}
}

func TestSwapStepFee(t *testing.T) {
	liquidity := bigPow10(24)
	sqrtCurrent := new(big.Int).Set(Q96)
	sqrtTarget, _ := TickToSqrtPriceX96(1000)
	amountIn := bigPow10(18)

	res := SwapStep(sqrtCurrent, sqrtTarget, liquidity, amountIn, 30)

	// Partial step: principal plus fee account for the entire input.
	total := new(big.Int).Add(res.AmountIn, res.FeeAmount)
	if total.Cmp(amountIn) != 0 {
		t.Errorf("principal %s + fee %s != input %s", res.AmountIn, res.FeeAmount, amountIn)
	}
	// 30 bps of 1e18 is 3e15.
	wantFee := big.NewInt(3_000_000_000_000_000)
	if res.FeeAmount.Cmp(wantFee) != 0 {
		t.Errorf("fee = %s, want %s", res.FeeAmount, wantFee)
	}
}
