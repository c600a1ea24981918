package hook_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dkim-labs/tickhook/pkg/amm"
	"github.com/dkim-labs/tickhook/pkg/custody"
	"github.com/dkim-labs/tickhook/pkg/hook"
	"github.com/dkim-labs/tickhook/pkg/util"
)

var unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// stubPool satisfies amm.PoolEngine with directly settable state.
type stubPool struct {
	binding   amm.PoolBinding
	sqrt      *big.Int
	tick      int32
	liquidity *big.Int
}

func (p *stubPool) PriceState(pool common.Hash) (amm.PriceState, error) {
	return amm.PriceState{SqrtPriceX96: new(big.Int).Set(p.sqrt), Tick: p.tick}, nil
}

func (p *stubPool) GetLiquidity(pool common.Hash) (*big.Int, error) {
	return new(big.Int).Set(p.liquidity), nil
}

func (p *stubPool) Binding(pool common.Hash) (amm.PoolBinding, error) {
	return p.binding, nil
}

type fixture struct {
	t      *testing.T
	h      *hook.Hook
	pool   *stubPool
	vault  *custody.Vault
	clock  *util.FakeClock
	poolID common.Hash

	owner     common.Address
	collector common.Address
	assetA    common.Address
	assetB    common.Address
}

func newFixture(t *testing.T, feeBps uint32) *fixture {
	t.Helper()

	f := &fixture{
		t:         t,
		owner:     common.HexToAddress("0x1111"),
		collector: common.HexToAddress("0x2222"),
		assetA:    common.HexToAddress("0xaa"),
		assetB:    common.HexToAddress("0xbb"),
	}
	binding := amm.PoolBinding{
		AssetA:      f.assetA,
		AssetB:      f.assetB,
		FeeTierBps:  30,
		TickSpacing: 60,
	}
	f.poolID = amm.PoolID(binding)
	f.pool = &stubPool{
		binding:   binding,
		sqrt:      new(big.Int).Set(amm.Q96),
		tick:      0,
		liquidity: new(big.Int),
	}
	f.clock = util.NewFakeClock(time.Unix(1_700_000_000, 0))
	f.vault = custody.NewVault()

	h, err := hook.New(hook.Config{FeeBps: feeBps, FeeCollector: f.collector},
		f.pool, f.vault, nil, f.clock, zap.NewNop().Sugar(), nil)
	if err != nil {
		t.Fatalf("new hook: %v", err)
	}
	if err := h.OnPoolInitialized(f.poolID, f.pool.sqrt); err != nil {
		t.Fatalf("bind pool: %v", err)
	}
	f.h = h
	return f
}

func (f *fixture) fund(asset common.Address, amount *big.Int) {
	f.t.Helper()
	if err := f.vault.Mint(asset, f.owner, amount); err != nil {
		f.t.Fatalf("fund: %v", err)
	}
}

func (f *fixture) deadline() int64 {
	return f.clock.Now().Unix() + 3600
}

func (f *fixture) place(dir amm.Direction, targetTick int32, amountIn, minOut *big.Int) uint64 {
	f.t.Helper()
	id, err := f.h.PlaceOrder(f.owner, f.poolID, dir, targetTick, amountIn, minOut, f.deadline())
	if err != nil {
		f.t.Fatalf("place order: %v", err)
	}
	return id
}

func (f *fixture) order(id uint64) *hook.Order {
	f.t.Helper()
	o, err := f.h.GetOrder(id)
	if err != nil {
		f.t.Fatalf("get order %d: %v", id, err)
	}
	return o
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)

	tests := []struct {
		name     string
		pool     common.Hash
		dir      amm.Direction
		tick     int32
		amount   *big.Int
		deadline int64
		wantErr  error
	}{
		{"unknown pool", common.HexToHash("0xdead"), amm.SellA, 0, unit, f.deadline(), hook.ErrPoolNotInitialized},
		{"zero amount", f.poolID, amm.SellA, 0, new(big.Int), f.deadline(), hook.ErrInvalidAmount},
		{"nil amount", f.poolID, amm.SellA, 0, nil, f.deadline(), hook.ErrInvalidAmount},
		{"elapsed deadline", f.poolID, amm.SellA, 0, unit, f.clock.Now().Unix(), hook.ErrInvalidAmount},
		{"tick above bounds", f.poolID, amm.SellA, amm.MaxTick + 1, unit, f.deadline(), hook.ErrInvalidTick},
		{"tick below bounds", f.poolID, amm.SellA, amm.MinTick - 1, unit, f.deadline(), hook.ErrInvalidTick},
		{"bad direction", f.poolID, amm.Direction(0), 0, unit, f.deadline(), hook.ErrInvalidDirection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.h.PlaceOrder(f.owner, tt.pool, tt.dir, tt.tick, tt.amount, nil, tt.deadline)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Escrow failure surfaces and leaves no order behind.
	poor := common.HexToAddress("0x9999")
	if _, err := f.h.PlaceOrder(poor, f.poolID, amm.SellA, 0, unit, nil, f.deadline()); err == nil {
		t.Error("expected escrow failure for unfunded owner")
	}
	if n := f.h.GetTickOrderCount(f.poolID, 0); n != 0 {
		t.Errorf("failed placement left %d index entries", n)
	}
}

func TestPlaceCancelRoundTrip(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)
	before := f.vault.BalanceOf(f.assetA, f.owner)

	id := f.place(amm.SellA, 0, unit, nil)
	if got := f.vault.BalanceOf(f.assetA, f.owner); got.Sign() != 0 {
		t.Fatalf("escrow left balance %s", got)
	}

	if err := f.h.CancelOrder(f.owner, id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := f.vault.BalanceOf(f.assetA, f.owner); got.Cmp(before) != 0 {
		t.Errorf("balance after cancel = %s, want %s", got, before)
	}
	if got := f.order(id).Status; got != hook.Cancelled {
		t.Errorf("status = %s, want Cancelled", got)
	}

	if err := f.h.CancelOrder(f.owner, id); !errors.Is(err, hook.ErrAlreadyCancelled) {
		t.Errorf("second cancel err = %v, want ErrAlreadyCancelled", err)
	}
	if err := f.h.ClaimOrder(f.owner, id); !errors.Is(err, hook.ErrNothingToClaim) {
		t.Errorf("claim of unfilled order err = %v, want ErrNothingToClaim", err)
	}
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)
	id := f.place(amm.SellA, 0, unit, nil)

	stranger := common.HexToAddress("0x7777")
	if err := f.h.CancelOrder(stranger, id); !errors.Is(err, hook.ErrUnauthorized) {
		t.Errorf("stranger cancel err = %v, want ErrUnauthorized", err)
	}
	if err := f.h.CancelOrder(f.owner, id+100); !errors.Is(err, hook.ErrOrderNotFound) {
		t.Errorf("unknown id err = %v, want ErrOrderNotFound", err)
	}
}

func TestTickCapacity(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, new(big.Int).Mul(unit, big.NewInt(300)))

	for i := 0; i < hook.DefaultTickCapacity; i++ {
		f.place(amm.SellA, 60, big.NewInt(1), nil)
	}
	if n := f.h.GetTickOrderCount(f.poolID, 60); n != hook.DefaultTickCapacity {
		t.Fatalf("bucket holds %d, want %d", n, hook.DefaultTickCapacity)
	}

	_, err := f.h.PlaceOrder(f.owner, f.poolID, amm.SellA, 60, big.NewInt(1), nil, f.deadline())
	if !errors.Is(err, hook.ErrTickCapacityExceeded) {
		t.Errorf("201st order err = %v, want ErrTickCapacityExceeded", err)
	}

	// A different tick has its own capacity.
	if _, err := f.h.PlaceOrder(f.owner, f.poolID, amm.SellA, 120, big.NewInt(1), nil, f.deadline()); err != nil {
		t.Errorf("placement at a different tick failed: %v", err)
	}
}

func TestFillAtTargetTick(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)
	id := f.place(amm.SellA, 0, unit, nil)

	var events []hook.FillEvent
	f.h.SetFillListener(func(ev hook.FillEvent) { events = append(events, ev) })

	// Same-direction trigger does nothing.
	if err := f.h.OnAfterSwap(f.poolID, amm.SellA); err != nil {
		t.Fatalf("after swap: %v", err)
	}
	if got := f.order(id).AmountFilled; got.Sign() != 0 {
		t.Fatalf("same-direction trigger filled %s", got)
	}

	// Opposite-direction swap landing at the target tick fills in full.
	if err := f.h.OnAfterSwap(f.poolID, amm.SellB); err != nil {
		t.Fatalf("after swap: %v", err)
	}
	o := f.order(id)
	if o.Status != hook.Filled {
		t.Fatalf("status = %s, want Filled", o.Status)
	}
	if o.AmountFilled.Cmp(unit) != 0 {
		t.Errorf("amountFilled = %s, want %s", o.AmountFilled, unit)
	}

	c, err := f.h.GetClaimable(id)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	// 1 unit at a 1:1 price minus the 0.3% execution fee.
	wantNet := new(big.Int).Sub(unit, big.NewInt(3_000_000_000_000_000))
	if c.AmountB.Cmp(wantNet) != 0 {
		t.Errorf("claimable B = %s, want %s", c.AmountB, wantNet)
	}
	floor := new(big.Int).Mul(unit, big.NewInt(99))
	floor.Div(floor, big.NewInt(100))
	if c.AmountB.Cmp(floor) <= 0 || c.AmountB.Cmp(unit) > 0 {
		t.Errorf("claimable B = %s, want within (0.99, 1.0] units", c.AmountB)
	}

	if len(events) != 1 {
		t.Fatalf("fill events = %d, want 1", len(events))
	}
	if events[0].OrderID != id || events[0].Status != hook.Filled {
		t.Errorf("unexpected fill event %+v", events[0])
	}

	// Claim pays out asset B and zeroes the record.
	if err := f.h.ClaimOrder(f.owner, id); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := f.vault.BalanceOf(f.assetB, f.owner); got.Cmp(wantNet) != 0 {
		t.Errorf("owner B balance = %s, want %s", got, wantNet)
	}
	if err := f.h.ClaimOrder(f.owner, id); !errors.Is(err, hook.ErrNothingToClaim) {
		t.Errorf("second claim err = %v, want ErrNothingToClaim", err)
	}

	// A filled order cannot be cancelled.
	if err := f.h.CancelOrder(f.owner, id); !errors.Is(err, hook.ErrAlreadyFilled) {
		t.Errorf("cancel of filled order err = %v, want ErrAlreadyFilled", err)
	}
}

func TestFillSkipsUnmetPriceCondition(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)

	// Sell-A wants tick <= target; the order rests below the pool's
	// current tick and the candidate scan runs at the current tick.
	id := f.place(amm.SellA, -60, unit, nil)

	if err := f.h.OnAfterSwap(f.poolID, amm.SellB); err != nil {
		t.Fatalf("after swap: %v", err)
	}
	if got := f.order(id).Status; got != hook.Open {
		t.Errorf("status = %s, want Open", got)
	}
}

func TestFillExpiredOrder(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)
	before := f.vault.BalanceOf(f.assetA, f.owner)
	id := f.place(amm.SellA, 0, unit, nil)

	f.clock.Advance(2 * time.Hour) // deadline was +1h

	if err := f.h.OnAfterSwap(f.poolID, amm.SellB); err != nil {
		t.Fatalf("after swap: %v", err)
	}
	o := f.order(id)
	if o.Status != hook.Expired {
		t.Fatalf("status = %s, want Expired", o.Status)
	}
	if o.AmountFilled.Sign() != 0 {
		t.Errorf("expired order filled %s", o.AmountFilled)
	}
	c, _ := f.h.GetClaimable(id)
	if c.AmountA.Sign() != 0 || c.AmountB.Sign() != 0 {
		t.Error("expired order accrued claimable proceeds")
	}
	// The unfilled remainder is refunded when the order expires.
	if got := f.vault.BalanceOf(f.assetA, f.owner); got.Cmp(before) != 0 {
		t.Errorf("balance after expiry = %s, want %s", got, before)
	}
}

func TestFillSlippageSkipped(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)

	// Demands two units out for one in: unattainable at a 1:1 price.
	tooTight := new(big.Int).Lsh(unit, 1)
	id := f.place(amm.SellA, 0, unit, tooTight)

	if err := f.h.OnAfterSwap(f.poolID, amm.SellB); err != nil {
		t.Fatalf("after swap: %v", err)
	}
	o := f.order(id)
	if o.Status != hook.Open {
		t.Errorf("status = %s, want Open after slippage skip", o.Status)
	}
	if o.AmountFilled.Sign() != 0 {
		t.Errorf("slippage skip mutated amountFilled to %s", o.AmountFilled)
	}
	// The order stays live and indexed for a future crossing.
	if ok, _ := f.h.IsFillable(id); !ok {
		t.Error("skipped order should still be fillable")
	}
	if n := f.h.GetTickOrderCount(f.poolID, 0); n != 1 {
		t.Errorf("bucket count = %d, want 1", n)
	}
}

func TestPartialFill(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetB, unit)

	// Pool sits inside tick 0, a hair above the tick boundary. A sell-B
	// order targeting tick 0 trades down to the boundary; thin liquidity
	// can only absorb a sliver of the order.
	f.pool.sqrt = new(big.Int).Mul(amm.Q96, big.NewInt(100003))
	f.pool.sqrt.Div(f.pool.sqrt, big.NewInt(100000))
	f.pool.tick = 0
	f.pool.liquidity = new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil)

	id, err := f.h.PlaceOrder(f.owner, f.poolID, amm.SellB, 0, unit, nil, f.deadline())
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if err := f.h.OnAfterSwap(f.poolID, amm.SellA); err != nil {
		t.Fatalf("after swap: %v", err)
	}
	o := f.order(id)
	if o.Status != hook.PartiallyFilled {
		t.Fatalf("status = %s, want PartiallyFilled", o.Status)
	}
	if o.AmountFilled.Sign() <= 0 || o.AmountFilled.Cmp(unit) >= 0 {
		t.Fatalf("amountFilled = %s, want strictly between 0 and %s", o.AmountFilled, unit)
	}

	c, _ := f.h.GetClaimable(id)
	if c.AmountA.Sign() <= 0 {
		t.Error("partial fill credited no asset A")
	}
	if n := f.h.GetTickOrderCount(f.poolID, 0); n != 1 {
		t.Errorf("partially filled order left the index: count=%d", n)
	}

	// Claim is available mid-fill, before terminal status.
	if err := f.h.ClaimOrder(f.owner, id); err != nil {
		t.Fatalf("mid-fill claim: %v", err)
	}
	if got := f.vault.BalanceOf(f.assetA, f.owner); got.Cmp(c.AmountA) != 0 {
		t.Errorf("claimed %s asset A, want %s", got, c.AmountA)
	}

	// A second crossing keeps filling from where it left off.
	filled := new(big.Int).Set(o.AmountFilled)
	if err := f.h.OnAfterSwap(f.poolID, amm.SellA); err != nil {
		t.Fatalf("second after swap: %v", err)
	}
	if got := f.order(id).AmountFilled; got.Cmp(filled) < 0 {
		t.Errorf("amountFilled shrank from %s to %s", filled, got)
	}
}

func TestIsFillableBoundary(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, new(big.Int).Mul(unit, big.NewInt(10)))
	f.fund(f.assetB, new(big.Int).Mul(unit, big.NewInt(10)))

	// At the pool's exact current tick both directions satisfy their
	// condition at equality.
	sellA := f.place(amm.SellA, 0, unit, nil)
	idB, err := f.h.PlaceOrder(f.owner, f.poolID, amm.SellB, 0, unit, nil, f.deadline())
	if err != nil {
		t.Fatalf("place sell-B: %v", err)
	}
	for _, id := range []uint64{sellA, idB} {
		ok, err := f.h.IsFillable(id)
		if err != nil {
			t.Fatalf("fillable %d: %v", id, err)
		}
		if !ok {
			t.Errorf("order %d at the current tick should be fillable", id)
		}
	}

	// Sell-A below the current tick is not fillable yet.
	notYet := f.place(amm.SellA, -60, unit, nil)
	if ok, _ := f.h.IsFillable(notYet); ok {
		t.Error("sell-A order below the current tick reported fillable")
	}

	// Deadline elapse flips fillable off.
	f.clock.Advance(2 * time.Hour)
	if ok, _ := f.h.IsFillable(sellA); ok {
		t.Error("expired order reported fillable")
	}
}

func TestCleanupTickOrders(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, new(big.Int).Mul(unit, big.NewInt(10)))

	cancelled := f.place(amm.SellA, 60, unit, nil)
	expiring := f.place(amm.SellA, 60, unit, nil)
	longLived, err := f.h.PlaceOrder(f.owner, f.poolID, amm.SellA, 60, unit, nil, f.clock.Now().Unix()+36000)
	if err != nil {
		t.Fatalf("place long-lived: %v", err)
	}

	if err := f.h.CancelOrder(f.owner, cancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.clock.Advance(2 * time.Hour) // expires `expiring`, not `longLived`

	removed, err := f.h.CleanupTickOrders(f.poolID, 60)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if got := f.order(expiring).Status; got != hook.Expired {
		t.Errorf("expiring order status = %s, want Expired", got)
	}
	if got := f.order(longLived).Status; got != hook.Open {
		t.Errorf("long-lived order status = %s, want Open", got)
	}
	if n := f.h.GetTickOrderCount(f.poolID, 60); n != 1 {
		t.Errorf("bucket count after cleanup = %d, want 1", n)
	}

	// Idempotent: nothing new to reclaim.
	removed, err = f.h.CleanupTickOrders(f.poolID, 60)
	if err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
	if removed != 0 {
		t.Errorf("second cleanup removed %d, want 0", removed)
	}

	if _, err := f.h.CleanupTickOrders(common.HexToHash("0xdead"), 60); !errors.Is(err, hook.ErrPoolNotInitialized) {
		t.Errorf("cleanup of unknown pool err = %v, want ErrPoolNotInitialized", err)
	}
}

func TestFeeAccrualAndCollection(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)
	f.place(amm.SellA, 0, unit, nil)

	if err := f.h.OnAfterSwap(f.poolID, amm.SellB); err != nil {
		t.Fatalf("after swap: %v", err)
	}

	wantFee := big.NewInt(3_000_000_000_000_000) // 30 bps of one unit
	if got := f.h.FeesAccrued(f.assetB); got.Cmp(wantFee) != 0 {
		t.Fatalf("fees accrued = %s, want %s", got, wantFee)
	}

	swept, err := f.h.CollectFees(f.assetB)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if swept.Cmp(wantFee) != 0 {
		t.Errorf("swept = %s, want %s", swept, wantFee)
	}
	if got := f.vault.BalanceOf(f.assetB, f.collector); got.Cmp(wantFee) != 0 {
		t.Errorf("collector balance = %s, want %s", got, wantFee)
	}
	if got := f.h.FeesAccrued(f.assetB); got.Sign() != 0 {
		t.Errorf("fees accrued after sweep = %s, want 0", got)
	}
}

func TestFeeConfigValidation(t *testing.T) {
	f := newFixture(t, 30)
	if err := f.h.SetFeeBps(hook.MaxFeeBps); err != nil {
		t.Errorf("fee at the cap rejected: %v", err)
	}
	if err := f.h.SetFeeBps(hook.MaxFeeBps + 1); !errors.Is(err, hook.ErrFeeTooHigh) {
		t.Errorf("fee over the cap err = %v, want ErrFeeTooHigh", err)
	}
	if _, err := hook.New(hook.Config{FeeBps: 2000}, f.pool, f.vault, nil, f.clock, zap.NewNop().Sugar(), nil); !errors.Is(err, hook.ErrFeeTooHigh) {
		t.Errorf("constructor fee over the cap err = %v, want ErrFeeTooHigh", err)
	}
}

func TestBeforeSwapIsAdvisory(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, unit)
	id := f.place(amm.SellA, 0, unit, nil)

	if err := f.h.OnBeforeSwap(f.poolID, amm.SellB); err != nil {
		t.Fatalf("before swap: %v", err)
	}
	if got := f.order(id); got.Status != hook.Open || got.AmountFilled.Sign() != 0 {
		t.Error("advisory pass mutated order state")
	}
	if err := f.h.OnBeforeSwap(common.HexToHash("0xdead"), amm.SellB); !errors.Is(err, hook.ErrPoolNotInitialized) {
		t.Errorf("before swap on unknown pool err = %v, want ErrPoolNotInitialized", err)
	}
}

func TestUserOrderIndex(t *testing.T) {
	f := newFixture(t, 30)
	f.fund(f.assetA, new(big.Int).Mul(unit, big.NewInt(3)))

	ids := []uint64{
		f.place(amm.SellA, 0, unit, nil),
		f.place(amm.SellA, 60, unit, nil),
		f.place(amm.SellA, 120, unit, nil),
	}
	orders := f.h.GetUserOrders(f.owner)
	if len(orders) != len(ids) {
		t.Fatalf("user orders = %d, want %d", len(orders), len(ids))
	}
	for i, o := range orders {
		if o.ID != ids[i] {
			t.Errorf("user order %d id = %d, want %d (placement order)", i, o.ID, ids[i])
		}
	}
	if got := f.h.GetUserOrders(common.HexToAddress("0x7777")); len(got) != 0 {
		t.Errorf("stranger has %d orders, want 0", len(got))
	}
}

func TestRestoreWarnsOnIndexOverflow(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core).Sugar()

	pool := common.HexToHash("0x01")
	order := func(id uint64) *hook.Order {
		return &hook.Order{
			ID:               id,
			Owner:            common.HexToAddress("0x11"),
			PoolID:           pool,
			Direction:        amm.SellA,
			TargetTick:       60,
			AmountIn:         big.NewInt(100),
			AmountOutMinimum: new(big.Int),
			AmountFilled:     new(big.Int),
			Deadline:         1_700_003_600,
			Status:           hook.Open,
		}
	}
	snap := &hook.Snapshot{Orders: []*hook.Order{order(1), order(2), order(3)}}

	// A capacity lowered between runs admits fewer live orders than the
	// snapshot carries; the overflow must be visible in the logs.
	h, err := hook.New(hook.Config{TickCapacity: 1}, nil, nil, nil, nil, log, snap)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n := h.GetTickOrderCount(pool, 60); n != 1 {
		t.Errorf("index holds %d entries, want the capacity of 1", n)
	}
	if got := logs.FilterMessage("order_index_overflow").Len(); got != 2 {
		t.Errorf("overflow warnings = %d, want 2", got)
	}
	// Every order is still reachable through the ledger.
	for id := uint64(1); id <= 3; id++ {
		if _, err := h.GetOrder(id); err != nil {
			t.Errorf("order %d lost in restore: %v", id, err)
		}
	}
}
