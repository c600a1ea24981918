// Package custody holds asset balances on behalf of the order hook: escrow
// on placement, payout on cancel/claim. Assets are identified by address,
// with the zero address reserved as the native-asset sentinel.
package custody

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset is the sentinel address for the chain's native asset.
var NativeAsset = common.Address{}

// Vault tracks per-(asset, holder) balances. Hook operations are serialized
// by the hook itself; the RWMutex exists for concurrent API reads.
type Vault struct {
	mu       sync.RWMutex
	balances map[common.Address]map[common.Address]*big.Int // asset -> holder -> balance
}

// NewVault creates an empty vault.
func NewVault() *Vault {
	return &Vault{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits freshly created funds to a holder (devnet faucet).
func (v *Vault) Mint(asset, holder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("mint amount must be positive")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.creditLocked(asset, holder, amount)
	return nil
}

// EscrowFrom moves amount of asset from the payer into hook custody.
// Returns error if the payer's balance is insufficient; no partial moves.
func (v *Vault) EscrowFrom(asset, payer common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("escrow amount must be positive")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	bal := v.balanceLocked(asset, payer)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: have %s, need %s", bal, amount)
	}
	bal.Sub(bal, amount)
	return nil
}

// PayOut releases amount of asset from custody to the recipient.
func (v *Vault) PayOut(asset, recipient common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("payout amount must be non-negative")
	}
	if amount.Sign() == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.creditLocked(asset, recipient, amount)
	return nil
}

// BalanceOf returns a copy of the holder's balance for an asset.
func (v *Vault) BalanceOf(asset, holder common.Address) *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	holders, ok := v.balances[asset]
	if !ok {
		return new(big.Int)
	}
	bal, ok := holders[holder]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(bal)
}

func (v *Vault) creditLocked(asset, holder common.Address, amount *big.Int) {
	bal := v.balanceLocked(asset, holder)
	bal.Add(bal, amount)
}

// balanceLocked returns the mutable balance entry, creating it at zero.
// Caller must hold v.mu.
func (v *Vault) balanceLocked(asset, holder common.Address) *big.Int {
	holders, ok := v.balances[asset]
	if !ok {
		holders = make(map[common.Address]*big.Int)
		v.balances[asset] = holders
	}
	bal, ok := holders[holder]
	if !ok {
		bal = new(big.Int)
		holders[holder] = bal
	}
	return bal
}
