// Package hook implements resting limit orders layered on a CLMM pool:
// a tick-indexed order ledger with bounded per-tick capacity, a claim
// ledger for fill proceeds, and the fill engine that executes orders when
// the pool's price crosses their target tick.
package hook

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/dkim-labs/tickhook/pkg/amm"
	"github.com/dkim-labs/tickhook/pkg/util"
)

// DefaultTickCapacity bounds how many orders may rest at one (pool, tick).
// It caps the work a single price-crossing event can be forced to do.
const DefaultTickCapacity = 200

// MaxFeeBps caps the owner-configurable execution fee at 10%.
const MaxFeeBps = 1000

// Custody is the external two-asset custody surface: escrow on placement,
// payout on refund and claim.
type Custody interface {
	EscrowFrom(asset, payer common.Address, amount *big.Int) error
	PayOut(asset, recipient common.Address, amount *big.Int) error
}

// Persistence is the write-through store for hook state. All methods are
// called with the hook lock held; implementations must not call back.
type Persistence interface {
	SaveOrder(o *Order) error
	SaveClaimable(id uint64, c *Claimable) error
	SaveBinding(pool common.Hash, b amm.PoolBinding) error
	SaveFeeConfig(feeBps uint32, collector common.Address) error
	SaveFeeAccrual(asset common.Address, amount *big.Int) error
	SaveNextID(next uint64) error
}

// Snapshot is previously persisted hook state, loaded at boot. The user
// and tick indices are rebuilt from the orders.
type Snapshot struct {
	Orders       []*Order
	Claims       map[uint64]*Claimable
	Bindings     map[common.Hash]amm.PoolBinding
	FeesAccrued  map[common.Address]*big.Int
	NextID       uint64
	FeeBps       uint32
	FeeCollector common.Address
	HasFeeConfig bool
}

// Config carries the hook's tunables.
type Config struct {
	FeeBps       uint32 // execution fee in basis points, <= MaxFeeBps
	FeeCollector common.Address
	TickCapacity int // 0 means DefaultTickCapacity
}

// FillEvent describes one committed fill, for log streams and the
// websocket hub.
type FillEvent struct {
	OrderID   uint64         `json:"orderId"`
	PoolID    common.Hash    `json:"poolId"`
	Owner     common.Address `json:"owner"`
	Direction amm.Direction  `json:"direction"`
	Tick      int32          `json:"tick"`
	Consumed  *big.Int       `json:"consumed"`
	NetOut    *big.Int       `json:"netOut"`
	Fee       *big.Int       `json:"fee"`
	Status    Status         `json:"status"`
}

// Hook is the limit-order hook. Every public operation runs under one
// mutex, mirroring the serialized per-call execution model of the host the
// design comes from; nothing here blocks or waits.
type Hook struct {
	mu    sync.Mutex
	log   *zap.SugaredLogger
	clock util.Clock

	pool  amm.PoolEngine
	vault Custody
	store Persistence // optional; nil runs memory-only

	feeBps       uint32
	feeCollector common.Address

	nextID     uint64
	orders     map[uint64]*Order
	userOrders map[common.Address][]uint64
	claims     map[uint64]*Claimable
	ticks      *tickIndex
	bindings   map[common.Hash]amm.PoolBinding

	feesAccrued map[common.Address]*big.Int // per output asset

	onFill func(FillEvent)
}

// New creates a hook over the given pool engine and custody. A non-nil
// snapshot restores persisted state; the secondary indices are rebuilt from
// it.
func New(cfg Config, pool amm.PoolEngine, vault Custody, store Persistence, clock util.Clock, log *zap.SugaredLogger, snap *Snapshot) (*Hook, error) {
	if cfg.FeeBps > MaxFeeBps {
		return nil, ErrFeeTooHigh
	}
	capacity := cfg.TickCapacity
	if capacity <= 0 {
		capacity = DefaultTickCapacity
	}
	if clock == nil {
		clock = util.RealClock{}
	}

	h := &Hook{
		log:          log,
		clock:        clock,
		pool:         pool,
		vault:        vault,
		store:        store,
		feeBps:       cfg.FeeBps,
		feeCollector: cfg.FeeCollector,
		nextID:       1,
		orders:       make(map[uint64]*Order),
		userOrders:   make(map[common.Address][]uint64),
		claims:       make(map[uint64]*Claimable),
		ticks:        newTickIndex(capacity),
		bindings:     make(map[common.Hash]amm.PoolBinding),
		feesAccrued:  make(map[common.Address]*big.Int),
	}
	if snap != nil {
		h.restore(snap)
	}
	return h, nil
}

// restore rebuilds in-memory state from a snapshot.
func (h *Hook) restore(snap *Snapshot) {
	for pool, b := range snap.Bindings {
		h.bindings[pool] = b
	}
	for _, o := range snap.Orders {
		h.orders[o.ID] = o
		h.userOrders[o.Owner] = append(h.userOrders[o.Owner], o.ID)
		if o.Status.Live() {
			// A capacity lowered between runs can leave more live orders
			// than the bucket admits; those orders stay cancellable but
			// will never fill, so the drop must be visible.
			if !h.ticks.append(o.PoolID, o.TargetTick, o.ID) {
				h.log.Warnw("order_index_overflow",
					"order", o.ID,
					"pool", o.PoolID.Hex(),
					"tick", o.TargetTick,
					"capacity", h.ticks.capacity,
				)
			}
		}
	}
	for id, c := range snap.Claims {
		h.claims[id] = c
	}
	for asset, amount := range snap.FeesAccrued {
		h.feesAccrued[asset] = new(big.Int).Set(amount)
	}
	if snap.NextID > h.nextID {
		h.nextID = snap.NextID
	}
	if snap.HasFeeConfig {
		h.feeBps = snap.FeeBps
		h.feeCollector = snap.FeeCollector
	}
	h.log.Infow("hook_state_restored",
		"orders", len(h.orders),
		"claims", len(h.claims),
		"pools", len(h.bindings),
		"next_id", h.nextID,
	)
}

// BindPool attaches the pool engine the fill engine reads price and
// liquidity from. Exists for wiring: the dispatcher that implements the
// engine is constructed after the hook it dispatches to.
func (h *Hook) BindPool(engine amm.PoolEngine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pool = engine
}

// SetFillListener registers a callback invoked after each committed fill,
// with the hook lock released.
func (h *Hook) SetFillListener(fn func(FillEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onFill = fn
}

// PlaceOrder escrows amountIn of the input asset and creates a resting
// order at targetTick. Validation rejects before any state changes:
// unknown pool, non-positive amount, elapsed deadline, out-of-range tick,
// or a full tick bucket.
func (h *Hook) PlaceOrder(owner common.Address, pool common.Hash, dir amm.Direction, targetTick int32, amountIn, amountOutMinimum *big.Int, deadline int64) (uint64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	binding, ok := h.bindings[pool]
	if !ok {
		return 0, ErrPoolNotInitialized
	}
	if !dir.Valid() {
		return 0, ErrInvalidDirection
	}
	if amountIn == nil || amountIn.Sign() <= 0 || deadline <= h.clock.Now().Unix() {
		return 0, ErrInvalidAmount
	}
	if targetTick < amm.MinTick || targetTick > amm.MaxTick {
		return 0, ErrInvalidTick
	}
	if h.ticks.count(pool, targetTick) >= h.ticks.capacity {
		return 0, ErrTickCapacityExceeded
	}
	if amountOutMinimum == nil {
		amountOutMinimum = new(big.Int)
	}

	if err := h.vault.EscrowFrom(inputAsset(binding, dir), owner, amountIn); err != nil {
		return 0, fmt.Errorf("escrow: %w", err)
	}

	o := &Order{
		ID:               h.nextID,
		Owner:            owner,
		PoolID:           pool,
		Direction:        dir,
		TargetTick:       targetTick,
		AmountIn:         new(big.Int).Set(amountIn),
		AmountOutMinimum: new(big.Int).Set(amountOutMinimum),
		AmountFilled:     new(big.Int),
		Deadline:         deadline,
		Status:           Open,
	}
	h.nextID++
	h.orders[o.ID] = o
	h.userOrders[owner] = append(h.userOrders[owner], o.ID)
	h.ticks.append(pool, targetTick, o.ID)

	h.persistOrder(o)
	h.persistNextID()
	h.log.Infow("order_placed",
		"order", o.ID,
		"owner", owner.Hex(),
		"pool", pool.Hex(),
		"direction", dir.String(),
		"target_tick", targetTick,
		"amount_in", amountIn.String(),
	)
	return o.ID, nil
}

// CancelOrder closes a live order and refunds its unfilled remainder to the
// owner. The status change and the refund commit together or not at all.
func (h *Hook) CancelOrder(caller common.Address, id uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	o, ok := h.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Owner != caller {
		return ErrUnauthorized
	}
	switch o.Status {
	case Filled:
		return ErrAlreadyFilled
	case Cancelled:
		return ErrAlreadyCancelled
	case Expired:
		// Expired orders were refunded when they were marked expired.
		return ErrAlreadyCancelled
	}

	binding := h.bindings[o.PoolID]
	refund := o.Remaining()
	if refund.Sign() > 0 {
		if err := h.vault.PayOut(inputAsset(binding, o.Direction), o.Owner, refund); err != nil {
			return fmt.Errorf("refund: %w", err)
		}
	}
	o.Status = Cancelled

	h.persistOrder(o)
	h.log.Infow("order_cancelled", "order", id, "refund", refund.String())
	return nil
}

// ClaimOrder pays out the order's accumulated proceeds in both assets and
// zeroes the claim record. Available whenever a nonzero balance exists;
// terminal status is not required.
func (h *Hook) ClaimOrder(caller common.Address, id uint64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	o, ok := h.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Owner != caller {
		return ErrUnauthorized
	}
	c, ok := h.claims[id]
	if !ok || c.empty() {
		return ErrNothingToClaim
	}

	binding := h.bindings[o.PoolID]
	if c.AmountA.Sign() > 0 {
		if err := h.vault.PayOut(binding.AssetA, o.Owner, c.AmountA); err != nil {
			return fmt.Errorf("claim payout A: %w", err)
		}
	}
	if c.AmountB.Sign() > 0 {
		if err := h.vault.PayOut(binding.AssetB, o.Owner, c.AmountB); err != nil {
			return fmt.Errorf("claim payout B: %w", err)
		}
	}
	paidA, paidB := c.AmountA.String(), c.AmountB.String()
	c.AmountA = new(big.Int)
	c.AmountB = new(big.Int)

	h.persistClaimable(id, c)
	h.log.Infow("order_claimed", "order", id, "amount_a", paidA, "amount_b", paidB)
	return nil
}

// CleanupTickOrders expires past-deadline orders at (pool, tick) and
// compacts the bucket down to live entries, returning the slots freed.
// Callable by anyone and idempotent; this is the only path that reclaims
// bucket capacity after orders terminate.
func (h *Hook) CleanupTickOrders(pool common.Hash, tick int32) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.bindings[pool]; !ok {
		return 0, ErrPoolNotInitialized
	}

	now := h.clock.Now().Unix()
	for _, id := range h.ticks.get(pool, tick) {
		o, ok := h.orders[id]
		if !ok || !o.Status.Live() {
			continue
		}
		if o.ExpiredAt(now) {
			h.markExpired(o)
		}
	}

	removed := h.ticks.compact(pool, tick, func(id uint64) bool {
		o, ok := h.orders[id]
		return ok && o.Status.Live()
	})
	if removed > 0 {
		h.log.Infow("tick_bucket_compacted", "pool", pool.Hex(), "tick", tick, "removed", removed)
	}
	return removed, nil
}

// markExpired transitions a live order to Expired and refunds its unfilled
// remainder, so funds never strand behind an elapsed deadline. Caller holds
// the lock.
func (h *Hook) markExpired(o *Order) {
	binding := h.bindings[o.PoolID]
	refund := o.Remaining()
	if refund.Sign() > 0 {
		if err := h.vault.PayOut(inputAsset(binding, o.Direction), o.Owner, refund); err != nil {
			h.log.Errorw("expiry_refund_failed", "order", o.ID, "err", err)
			return
		}
	}
	o.Status = Expired
	h.persistOrder(o)
	h.log.Infow("order_expired", "order", o.ID, "refund", refund.String())
}

// ---- Admin surface ----

// SetFeeBps updates the execution fee rate. Capped at MaxFeeBps.
func (h *Hook) SetFeeBps(bps uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if bps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	h.feeBps = bps
	h.persistFeeConfig()
	return nil
}

// SetFeeCollector updates the address fee sweeps pay to.
func (h *Hook) SetFeeCollector(addr common.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.feeCollector = addr
	h.persistFeeConfig()
}

// FeeBps returns the current execution fee rate.
func (h *Hook) FeeBps() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.feeBps
}

// FeesAccrued returns the uncollected fee balance for an asset.
func (h *Hook) FeesAccrued(asset common.Address) *big.Int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if bal, ok := h.feesAccrued[asset]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// CollectFees sweeps the accrued fee balance for an asset to the collector.
func (h *Hook) CollectFees(asset common.Address) (*big.Int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	bal, ok := h.feesAccrued[asset]
	if !ok || bal.Sign() == 0 {
		return new(big.Int), nil
	}
	swept := new(big.Int).Set(bal)
	if err := h.vault.PayOut(asset, h.feeCollector, swept); err != nil {
		return nil, fmt.Errorf("fee sweep: %w", err)
	}
	bal.SetInt64(0)
	h.persistFeeAccrual(asset, bal)
	h.log.Infow("fees_collected", "asset", asset.Hex(), "amount", swept.String())
	return swept, nil
}

// ---- Queries ----

// GetOrder returns a copy of the order.
func (h *Hook) GetOrder(id uint64) (*Order, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	o, ok := h.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.clone(), nil
}

// GetUserOrders returns copies of all orders ever placed by owner, in
// placement order.
func (h *Hook) GetUserOrders(owner common.Address) []*Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := h.userOrders[owner]
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := h.orders[id]; ok {
			out = append(out, o.clone())
		}
	}
	return out
}

// GetTickOrders returns copies of the orders currently indexed at
// (pool, tick), including terminal ones not yet compacted away.
func (h *Hook) GetTickOrders(pool common.Hash, tick int32) []*Order {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := h.ticks.get(pool, tick)
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := h.orders[id]; ok {
			out = append(out, o.clone())
		}
	}
	return out
}

// GetTickOrderCount returns the number of index entries at (pool, tick).
func (h *Hook) GetTickOrderCount(pool common.Hash, tick int32) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ticks.count(pool, tick)
}

// GetClaimable returns a copy of the order's unclaimed proceeds.
func (h *Hook) GetClaimable(id uint64) (*Claimable, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.orders[id]; !ok {
		return nil, ErrOrderNotFound
	}
	c, ok := h.claims[id]
	if !ok {
		return newClaimable(), nil
	}
	return c.clone(), nil
}

// IsFillable reports whether the order is live, unexpired, and the pool's
// current tick satisfies its price condition (at equality included).
func (h *Hook) IsFillable(id uint64) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	o, ok := h.orders[id]
	if !ok {
		return false, ErrOrderNotFound
	}
	if !o.Status.Live() || o.ExpiredAt(h.clock.Now().Unix()) {
		return false, nil
	}
	st, err := h.pool.PriceState(o.PoolID)
	if err != nil {
		return false, err
	}
	return priceConditionMet(o, st.Tick), nil
}

// ---- helpers ----

// inputAsset returns the asset an order of the given direction pays in.
func inputAsset(b amm.PoolBinding, dir amm.Direction) common.Address {
	if dir == amm.SellA {
		return b.AssetA
	}
	return b.AssetB
}

// outputAsset returns the asset an order of the given direction receives.
func outputAsset(b amm.PoolBinding, dir amm.Direction) common.Address {
	if dir == amm.SellA {
		return b.AssetB
	}
	return b.AssetA
}

// priceConditionMet reports whether the current tick has reached or passed
// the order's target: sell-A needs tick <= target, sell-B needs
// tick >= target.
func priceConditionMet(o *Order, tick int32) bool {
	if o.Direction == amm.SellA {
		return tick <= o.TargetTick
	}
	return tick >= o.TargetTick
}

func (h *Hook) persistOrder(o *Order) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveOrder(o); err != nil {
		h.log.Errorw("persist_order_failed", "order", o.ID, "err", err)
	}
}

func (h *Hook) persistClaimable(id uint64, c *Claimable) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveClaimable(id, c); err != nil {
		h.log.Errorw("persist_claimable_failed", "order", id, "err", err)
	}
}

func (h *Hook) persistBinding(pool common.Hash, b amm.PoolBinding) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveBinding(pool, b); err != nil {
		h.log.Errorw("persist_binding_failed", "pool", pool.Hex(), "err", err)
	}
}

func (h *Hook) persistNextID() {
	if h.store == nil {
		return
	}
	if err := h.store.SaveNextID(h.nextID); err != nil {
		h.log.Errorw("persist_sequence_failed", "err", err)
	}
}

func (h *Hook) persistFeeAccrual(asset common.Address, amount *big.Int) {
	if h.store == nil {
		return
	}
	if err := h.store.SaveFeeAccrual(asset, amount); err != nil {
		h.log.Errorw("persist_fee_accrual_failed", "asset", asset.Hex(), "err", err)
	}
}

func (h *Hook) persistFeeConfig() {
	if h.store == nil {
		return
	}
	if err := h.store.SaveFeeConfig(h.feeBps, h.feeCollector); err != nil {
		h.log.Errorw("persist_fee_config_failed", "err", err)
	}
}
