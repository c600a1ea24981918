package amm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Direction identifies which asset a swap (or a resting order) pays into
// the pool. Selling asset A pushes the pool price up; selling asset B
// pushes it down.
type Direction int8

const (
	SellA Direction = 1
	SellB Direction = -1
)

func (d Direction) Opposite() Direction { return -d }

func (d Direction) String() string {
	switch d {
	case SellA:
		return "SellA"
	case SellB:
		return "SellB"
	default:
		return "Unknown"
	}
}

// Valid reports whether d is one of the two swap directions.
func (d Direction) Valid() bool { return d == SellA || d == SellB }

// PoolBinding is the static metadata of a pool: the two asset identifiers,
// its fee tier and tick spacing. Captured by the hook at initialization so
// token movement never has to re-derive it from the pool.
type PoolBinding struct {
	AssetA      common.Address `json:"assetA"`
	AssetB      common.Address `json:"assetB"`
	FeeTierBps  uint32         `json:"feeTierBps"`
	TickSpacing int32          `json:"tickSpacing"`
}

// PriceState is a snapshot of a pool's current price.
type PriceState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
}

// PoolEngine is the read surface the fill engine needs from the pool that
// owns price and liquidity state.
type PoolEngine interface {
	PriceState(pool common.Hash) (PriceState, error)
	GetLiquidity(pool common.Hash) (*big.Int, error)
	Binding(pool common.Hash) (PoolBinding, error)
}

// HookPermissions declares which lifecycle callbacks a hook wants. The
// dispatcher consults it once at registration and never calls a disabled
// callback.
type HookPermissions struct {
	AfterInitialize bool
	BeforeSwap      bool
	AfterSwap       bool
}

// LifecycleHook receives pool lifecycle notifications from the dispatcher.
type LifecycleHook interface {
	Permissions() HookPermissions
	OnPoolInitialized(pool common.Hash, sqrtPriceX96 *big.Int) error
	OnBeforeSwap(pool common.Hash, dir Direction) error
	OnAfterSwap(pool common.Hash, dir Direction) error
}
