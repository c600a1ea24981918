package api

import (
	"fmt"
	"math/big"

	"github.com/dkim-labs/tickhook/pkg/amm"
	"github.com/dkim-labs/tickhook/pkg/hook"
)

// Amounts travel as decimal strings so callers never lose precision to
// float JSON numbers.

type PlaceOrderRequest struct {
	Owner            string `json:"owner"`
	Pool             string `json:"pool"`
	Direction        string `json:"direction"` // "sellA" | "sellB"
	TargetTick       int32  `json:"targetTick"`
	AmountIn         string `json:"amountIn"`
	AmountOutMinimum string `json:"amountOutMinimum"`
	Deadline         int64  `json:"deadline"` // unix seconds
}

type PlaceOrderResponse struct {
	OrderID uint64 `json:"orderId"`
}

type CancelOrderRequest struct {
	Owner string `json:"owner"`
}

type ClaimOrderRequest struct {
	Owner string `json:"owner"`
}

type CleanupRequest struct {
	Pool string `json:"pool"`
	Tick int32  `json:"tick"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}

type OrderInfo struct {
	ID               uint64 `json:"id"`
	Owner            string `json:"owner"`
	Pool             string `json:"pool"`
	Direction        string `json:"direction"`
	TargetTick       int32  `json:"targetTick"`
	AmountIn         string `json:"amountIn"`
	AmountOutMinimum string `json:"amountOutMinimum"`
	AmountFilled     string `json:"amountFilled"`
	Deadline         int64  `json:"deadline"`
	Status           string `json:"status"`
}

type ClaimableInfo struct {
	AmountA string `json:"amountA"`
	AmountB string `json:"amountB"`
}

type FillableInfo struct {
	Fillable bool `json:"fillable"`
}

type TickOrderCountInfo struct {
	Count int `json:"count"`
}

type PoolInfo struct {
	ID           string `json:"id"`
	AssetA       string `json:"assetA"`
	AssetB       string `json:"assetB"`
	FeeTierBps   uint32 `json:"feeTierBps"`
	TickSpacing  int32  `json:"tickSpacing"`
	Initialized  bool   `json:"initialized"`
	SqrtPriceX96 string `json:"sqrtPriceX96,omitempty"`
	Tick         int32  `json:"tick,omitempty"`
	Liquidity    string `json:"liquidity"`
}

type SwapRequest struct {
	Direction string `json:"direction"`
	AmountIn  string `json:"amountIn"`
}

type SwapResponse struct {
	Consumed string `json:"consumed"`
	Produced string `json:"produced"`
}

type FaucetRequest struct {
	Asset  string `json:"asset"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

type SetLiquidityRequest struct {
	Liquidity string `json:"liquidity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func orderInfo(o *hook.Order) OrderInfo {
	return OrderInfo{
		ID:               o.ID,
		Owner:            o.Owner.Hex(),
		Pool:             o.PoolID.Hex(),
		Direction:        directionString(o.Direction),
		TargetTick:       o.TargetTick,
		AmountIn:         o.AmountIn.String(),
		AmountOutMinimum: o.AmountOutMinimum.String(),
		AmountFilled:     o.AmountFilled.String(),
		Deadline:         o.Deadline,
		Status:           o.Status.String(),
	}
}

func directionString(d amm.Direction) string {
	if d == amm.SellA {
		return "sellA"
	}
	return "sellB"
}

func parseDirection(s string) (amm.Direction, error) {
	switch s {
	case "sellA":
		return amm.SellA, nil
	case "sellB":
		return amm.SellB, nil
	default:
		return 0, fmt.Errorf("direction must be sellA or sellB")
	}
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	return v, nil
}
