package hook

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dkim-labs/tickhook/pkg/amm"
)

// Status is the lifecycle state of a resting order. Transitions are
// monotonic: Open -> PartiallyFilled -> Filled, with Cancelled and Expired
// reachable from the two live states. Filled, Cancelled and Expired are
// terminal and accept no further mutation.
type Status int8

const (
	Open Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Expired
)

func (s Status) String() string {
	switch s {
	case Open:
		return "Open"
	case PartiallyFilled:
		return "PartiallyFilled"
	case Filled:
		return "Filled"
	case Cancelled:
		return "Cancelled"
	case Expired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled || s == Expired
}

// Live reports whether the order can still be filled.
func (s Status) Live() bool {
	return s == Open || s == PartiallyFilled
}

// Order is a resting limit order. Orders are never physically deleted;
// terminal status closes them logically and a later tick-bucket compaction
// reclaims their index slot.
//
// Invariant: 0 <= AmountFilled <= AmountIn, and AmountFilled only grows,
// only inside the fill engine.
type Order struct {
	ID        uint64         `json:"id"`
	Owner     common.Address `json:"owner"`
	PoolID    common.Hash    `json:"poolId"`
	Direction amm.Direction  `json:"direction"`

	TargetTick       int32    `json:"targetTick"`
	AmountIn         *big.Int `json:"amountIn"`
	AmountOutMinimum *big.Int `json:"amountOutMinimum"`
	AmountFilled     *big.Int `json:"amountFilled"`

	Deadline int64  `json:"deadline"` // unix seconds
	Status   Status `json:"status"`
}

// Remaining returns AmountIn - AmountFilled.
func (o *Order) Remaining() *big.Int {
	return new(big.Int).Sub(o.AmountIn, o.AmountFilled)
}

// ExpiredAt reports whether the order's deadline has elapsed at time now.
func (o *Order) ExpiredAt(now int64) bool {
	return now > o.Deadline
}

// clone returns a deep copy so callers can't reach into ledger state.
func (o *Order) clone() *Order {
	cp := *o
	cp.AmountIn = new(big.Int).Set(o.AmountIn)
	cp.AmountOutMinimum = new(big.Int).Set(o.AmountOutMinimum)
	cp.AmountFilled = new(big.Int).Set(o.AmountFilled)
	return &cp
}

// Claimable is the accumulated, unclaimed proceeds of one order. Fills
// credit it; a claim drains both sides atomically. An order whose direction
// is SellA only ever accrues AmountB, and vice versa.
type Claimable struct {
	AmountA *big.Int `json:"amountA"`
	AmountB *big.Int `json:"amountB"`
}

func newClaimable() *Claimable {
	return &Claimable{AmountA: new(big.Int), AmountB: new(big.Int)}
}

func (c *Claimable) empty() bool {
	return c.AmountA.Sign() == 0 && c.AmountB.Sign() == 0
}

func (c *Claimable) clone() *Claimable {
	return &Claimable{
		AmountA: new(big.Int).Set(c.AmountA),
		AmountB: new(big.Int).Set(c.AmountB),
	}
}
