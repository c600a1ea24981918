package amm

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Pool holds the price and liquidity state of a single CLMM pool. It is the
// custodian of the curve; the limit-order hook only ever reads it through
// the PoolEngine interface and receives lifecycle callbacks from the
// Manager that owns it.
//
// Mutations are serialized by the Manager, but API handlers read price and
// liquidity concurrently, so the mutable fields sit behind their own
// RWMutex.
type Pool struct {
	ID      common.Hash
	binding PoolBinding

	mu           sync.RWMutex
	sqrtPriceX96 *big.Int
	tick         int32
	liquidity    *big.Int
	initialized  bool
}

// PoolID derives a deterministic pool identifier from its binding
// (keccak256 of assetA || assetB || feeTier || tickSpacing).
func PoolID(b PoolBinding) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(b.AssetA.Bytes())
	h.Write(b.AssetB.Bytes())
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], b.FeeTierBps)
	binary.BigEndian.PutUint32(buf[4:], uint32(b.TickSpacing))
	h.Write(buf[:])
	return common.BytesToHash(h.Sum(nil))
}

// NewPool creates an uninitialized pool for the given binding.
func NewPool(b PoolBinding) *Pool {
	return &Pool{
		ID:        PoolID(b),
		binding:   b,
		liquidity: new(big.Int),
	}
}

// Initialize sets the starting price. A pool can be initialized once.
func (p *Pool) Initialize(sqrtPriceX96 *big.Int) error {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return fmt.Errorf("initial sqrt price must be positive")
	}
	tick, err := TickAtSqrtPrice(sqrtPriceX96)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return fmt.Errorf("pool %s already initialized", p.ID.Hex())
	}
	p.sqrtPriceX96 = new(big.Int).Set(sqrtPriceX96)
	p.tick = tick
	p.initialized = true
	return nil
}

// Initialized reports whether the starting price has been set.
func (p *Pool) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// Binding returns the pool's static metadata.
func (p *Pool) Binding() PoolBinding { return p.binding }

// State returns the current price snapshot.
func (p *Pool) State() PriceState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PriceState{SqrtPriceX96: new(big.Int).Set(p.sqrtPriceX96), Tick: p.tick}
}

// Liquidity returns the pool's currently active liquidity.
func (p *Pool) Liquidity() *big.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.liquidity)
}

// SetLiquidity replaces the active liquidity. Position management is out of
// scope for the devnet pool, so liquidity is set directly.
func (p *Pool) SetLiquidity(l *big.Int) error {
	if l == nil || l.Sign() < 0 {
		return fmt.Errorf("liquidity must be non-negative")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.liquidity = new(big.Int).Set(l)
	return nil
}

// swap executes an exact-input swap against the pool's liquidity, bounded
// only by the global tick range, and moves the price. Returns the amounts
// actually consumed and produced.
func (p *Pool) swap(dir Direction, amountIn *big.Int) (consumed, produced *big.Int, err error) {
	if !dir.Valid() {
		return nil, nil, fmt.Errorf("invalid swap direction")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, nil, fmt.Errorf("swap amount must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return nil, nil, fmt.Errorf("pool %s not initialized", p.ID.Hex())
	}

	boundTick := MaxTick
	if dir == SellB {
		boundTick = MinTick
	}
	bound, err := TickToSqrtPriceX96(boundTick)
	if err != nil {
		return nil, nil, err
	}

	step := SwapStep(p.sqrtPriceX96, bound, p.liquidity, amountIn, p.binding.FeeTierBps)
	if step.AmountIn.Sign() == 0 {
		return step.AmountIn, step.AmountOut, nil
	}

	tick, err := TickAtSqrtPrice(step.SqrtPriceNextX96)
	if err != nil {
		return nil, nil, err
	}
	p.sqrtPriceX96 = step.SqrtPriceNextX96
	p.tick = tick
	return step.AmountIn, step.AmountOut, nil
}
