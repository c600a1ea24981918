package hook

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dkim-labs/tickhook/pkg/amm"
)

// Permissions implements amm.LifecycleHook. The hook wants all three
// lifecycle notifications.
func (h *Hook) Permissions() amm.HookPermissions {
	return amm.HookPermissions{
		AfterInitialize: true,
		BeforeSwap:      true,
		AfterSwap:       true,
	}
}

// OnPoolInitialized captures the pool's static binding so later token
// movement never re-derives it from the pool.
func (h *Hook) OnPoolInitialized(pool common.Hash, sqrtPriceX96 *big.Int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	binding, err := h.pool.Binding(pool)
	if err != nil {
		return err
	}
	h.bindings[pool] = binding
	h.persistBinding(pool, binding)
	h.log.Infow("pool_bound",
		"pool", pool.Hex(),
		"asset_a", binding.AssetA.Hex(),
		"asset_b", binding.AssetB.Hex(),
		"fee_tier_bps", binding.FeeTierBps,
	)
	return nil
}

// OnBeforeSwap is the advisory pass: a read-only look at the candidates at
// the current tick. It mutates nothing and gates nothing beyond the pool
// being known.
func (h *Hook) OnBeforeSwap(pool common.Hash, dir amm.Direction) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.bindings[pool]; !ok {
		return ErrPoolNotInitialized
	}
	st, err := h.pool.PriceState(pool)
	if err != nil {
		return err
	}
	if n := h.ticks.count(pool, st.Tick); n > 0 {
		h.log.Debugw("pre_swap_candidates", "pool", pool.Hex(), "tick", st.Tick, "count", n)
	}
	return nil
}

// OnAfterSwap is the authoritative fill pass. Every live, unexpired order
// resting at the pool's new tick is evaluated: the triggering swap must run
// opposite the order's direction and the price must have reached the
// order's target. Orders that fail their slippage floor are skipped
// silently and stay live for a future crossing.
func (h *Hook) OnAfterSwap(pool common.Hash, swapDir amm.Direction) error {
	h.mu.Lock()

	binding, ok := h.bindings[pool]
	if !ok {
		h.mu.Unlock()
		return ErrPoolNotInitialized
	}
	st, err := h.pool.PriceState(pool)
	if err != nil {
		h.mu.Unlock()
		return err
	}

	now := h.clock.Now().Unix()
	var events []FillEvent
	for _, id := range h.ticks.get(pool, st.Tick) {
		o, ok := h.orders[id]
		if !ok || !o.Status.Live() {
			continue
		}
		if o.ExpiredAt(now) {
			h.markExpired(o)
			continue
		}
		if swapDir != o.Direction.Opposite() || !priceConditionMet(o, st.Tick) {
			continue
		}
		if ev, filled := h.tryFill(o, binding, st); filled {
			events = append(events, ev)
		}
	}

	onFill := h.onFill
	h.mu.Unlock()

	if onFill != nil {
		for _, ev := range events {
			onFill(ev)
		}
	}
	return nil
}

// tryFill computes and, if the slippage floor allows, commits a fill for
// the order's remaining amount against current pool liquidity. Returns
// filled=false for the silent-skip cases: nothing fillable or net output
// under the proportional minimum.
func (h *Hook) tryFill(o *Order, binding amm.PoolBinding, st amm.PriceState) (FillEvent, bool) {
	remaining := o.Remaining()
	if remaining.Sign() <= 0 {
		return FillEvent{}, false
	}
	targetSqrt, err := amm.TickToSqrtPriceX96(o.TargetTick)
	if err != nil {
		h.log.Errorw("target_price_unavailable", "order", o.ID, "err", err)
		return FillEvent{}, false
	}
	liquidity, err := h.pool.GetLiquidity(o.PoolID)
	if err != nil {
		h.log.Errorw("liquidity_unavailable", "order", o.ID, "err", err)
		return FillEvent{}, false
	}

	consumed, gross := computeFill(st.SqrtPriceX96, targetSqrt, liquidity, remaining, o.Direction)
	if consumed.Sign() == 0 || gross.Sign() == 0 {
		return FillEvent{}, false
	}

	fee := amm.MulDiv(gross, big.NewInt(int64(h.feeBps)), big.NewInt(amm.BpsDenominator))
	net := new(big.Int).Sub(gross, fee)

	// Proportional slippage floor: the minimum scales with the fraction of
	// the original amount consumed this round, which for a full fill of the
	// remainder is exactly the remaining minimum.
	minOut := amm.MulDiv(o.AmountOutMinimum, consumed, o.AmountIn)
	if net.Cmp(minOut) < 0 {
		h.log.Debugw("fill_skipped_slippage",
			"order", o.ID,
			"net_out", net.String(),
			"min_out", minOut.String(),
		)
		return FillEvent{}, false
	}

	// Commit.
	o.AmountFilled.Add(o.AmountFilled, consumed)
	if o.AmountFilled.Cmp(o.AmountIn) >= 0 {
		o.Status = Filled
	} else {
		o.Status = PartiallyFilled
	}

	c, ok := h.claims[o.ID]
	if !ok {
		c = newClaimable()
		h.claims[o.ID] = c
	}
	if o.Direction == amm.SellA {
		c.AmountB.Add(c.AmountB, net)
	} else {
		c.AmountA.Add(c.AmountA, net)
	}

	if fee.Sign() > 0 {
		asset := outputAsset(binding, o.Direction)
		bal, ok := h.feesAccrued[asset]
		if !ok {
			bal = new(big.Int)
			h.feesAccrued[asset] = bal
		}
		bal.Add(bal, fee)
		h.persistFeeAccrual(asset, bal)
	}

	h.persistOrder(o)
	h.persistClaimable(o.ID, c)
	h.log.Infow("order_filled",
		"order", o.ID,
		"consumed", consumed.String(),
		"net_out", net.String(),
		"fee", fee.String(),
		"status", o.Status.String(),
	)

	return FillEvent{
		OrderID:   o.ID,
		PoolID:    o.PoolID,
		Owner:     o.Owner,
		Direction: o.Direction,
		Tick:      st.Tick,
		Consumed:  consumed,
		NetOut:    new(big.Int).Set(net),
		Fee:       fee,
		Status:    o.Status,
	}, true
}

// computeFill returns the input consumed and gross output produced for a
// fill of up to remaining, bounded at the order's target price.
//
// Zero liquidity converts the full remainder directly at the target price.
// Otherwise a single bounded swap step runs from the current price toward
// the target; it may consume less than the remainder when liquidity cannot
// move the price all the way there (a genuine partial fill). A step that
// produces nothing, as when start and target coincide, falls back to direct
// conversion of the full remainder.
func computeFill(sqrtCurrent, sqrtTarget, liquidity, remaining *big.Int, dir amm.Direction) (consumed, gross *big.Int) {
	// A sell-A fill pushes price up toward the target, a sell-B fill pushes
	// it down. If the current price already sits at or past the target on
	// the order's side (tick granularity allows this even at the target
	// tick), there is no curve segment to trade through: convert directly.
	cmp := sqrtTarget.Cmp(sqrtCurrent)
	noSegment := (dir == amm.SellA && cmp <= 0) || (dir == amm.SellB && cmp >= 0)
	if liquidity.Sign() == 0 || noSegment {
		return new(big.Int).Set(remaining), amm.ConvertAtPrice(remaining, sqrtTarget, dir)
	}
	step := amm.SwapStep(sqrtCurrent, sqrtTarget, liquidity, remaining, 0)
	if step.AmountOut.Sign() == 0 {
		return new(big.Int).Set(remaining), amm.ConvertAtPrice(remaining, sqrtTarget, dir)
	}
	return step.AmountIn, step.AmountOut
}
