package amm

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Manager registers pools and dispatches lifecycle notifications to the
// attached hook. It is the single entry point for anything that moves a
// pool's price, so hook callbacks always fire in initialize / before-swap /
// after-swap order with no interleaving per pool operation.
//
// Two locks: mu guards the pool registry map and allows hook callbacks to
// read pool state re-entrantly, opMu serializes the state-mutating
// operations (initialize, swap) end to end including their callbacks.
type Manager struct {
	mu    sync.RWMutex
	pools map[common.Hash]*Pool

	opMu sync.Mutex

	hook  LifecycleHook
	perms HookPermissions
	log   *zap.SugaredLogger
}

// NewManager creates a dispatcher with no pools. The hook's permissions are
// read once here; callbacks the hook did not ask for are never delivered.
func NewManager(hook LifecycleHook, log *zap.SugaredLogger) *Manager {
	m := &Manager{
		pools: make(map[common.Hash]*Pool),
		hook:  hook,
		log:   log,
	}
	if hook != nil {
		m.perms = hook.Permissions()
	}
	return m
}

// RegisterPool adds a pool to the registry.
// Returns error if a pool with the same id already exists.
func (m *Manager) RegisterPool(p *Pool) error {
	if p == nil {
		return fmt.Errorf("cannot register nil pool")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pools[p.ID]; exists {
		return fmt.Errorf("pool %s already registered", p.ID.Hex())
	}
	m.pools[p.ID] = p
	return nil
}

// GetPool retrieves a pool by id.
func (m *Manager) GetPool(id common.Hash) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, exists := m.pools[id]
	if !exists {
		return nil, fmt.Errorf("pool %s not found", id.Hex())
	}
	return p, nil
}

// ListPools returns all registered pools.
func (m *Manager) ListPools() []*Pool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pools := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	return pools
}

// InitializePool sets a pool's starting price and notifies the hook.
func (m *Manager) InitializePool(id common.Hash, sqrtPriceX96 *big.Int) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	p, err := m.GetPool(id)
	if err != nil {
		return err
	}
	if err := p.Initialize(sqrtPriceX96); err != nil {
		return err
	}
	if m.hook != nil && m.perms.AfterInitialize {
		if err := m.hook.OnPoolInitialized(p.ID, sqrtPriceX96); err != nil {
			return fmt.Errorf("hook after-initialize: %w", err)
		}
	}
	m.log.Infow("pool_initialized", "pool", p.ID.Hex(), "tick", p.State().Tick)
	return nil
}

// Swap executes an exact-input swap on a pool, delivering the before-swap
// and after-swap hook callbacks around the price move.
func (m *Manager) Swap(id common.Hash, dir Direction, amountIn *big.Int) (consumed, produced *big.Int, err error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	p, err := m.GetPool(id)
	if err != nil {
		return nil, nil, err
	}

	if m.hook != nil && m.perms.BeforeSwap {
		if err := m.hook.OnBeforeSwap(p.ID, dir); err != nil {
			return nil, nil, fmt.Errorf("hook before-swap: %w", err)
		}
	}

	consumed, produced, err = p.swap(dir, amountIn)
	if err != nil {
		return nil, nil, err
	}

	if m.hook != nil && m.perms.AfterSwap {
		if err := m.hook.OnAfterSwap(p.ID, dir); err != nil {
			return nil, nil, fmt.Errorf("hook after-swap: %w", err)
		}
	}

	m.log.Infow("swap_executed",
		"pool", p.ID.Hex(),
		"direction", dir.String(),
		"consumed", consumed.String(),
		"produced", produced.String(),
		"tick", p.State().Tick,
	)
	return consumed, produced, nil
}

// SetLiquidity replaces a pool's active liquidity (devnet admin surface).
func (m *Manager) SetLiquidity(id common.Hash, l *big.Int) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	p, err := m.GetPool(id)
	if err != nil {
		return err
	}
	return p.SetLiquidity(l)
}

// PriceState implements PoolEngine.
func (m *Manager) PriceState(id common.Hash) (PriceState, error) {
	p, err := m.GetPool(id)
	if err != nil {
		return PriceState{}, err
	}
	if !p.Initialized() {
		return PriceState{}, fmt.Errorf("pool %s not initialized", id.Hex())
	}
	return p.State(), nil
}

// GetLiquidity implements PoolEngine.
func (m *Manager) GetLiquidity(id common.Hash) (*big.Int, error) {
	p, err := m.GetPool(id)
	if err != nil {
		return nil, err
	}
	return p.Liquidity(), nil
}

// Binding implements PoolEngine.
func (m *Manager) Binding(id common.Hash) (PoolBinding, error) {
	p, err := m.GetPool(id)
	if err != nil {
		return PoolBinding{}, err
	}
	return p.Binding(), nil
}

var _ PoolEngine = (*Manager)(nil)
