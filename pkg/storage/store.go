// Package storage persists hook state in Pebble. Values are JSON, keys are
// short prefixed byte strings, and every committed mutation is written
// through synchronously so a restart replays no work.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dkim-labs/tickhook/pkg/amm"
	"github.com/dkim-labs/tickhook/pkg/hook"
)

// Store wraps a Pebble database with the hook's key schema:
//
//	ord:<id8>   → Order (id big-endian so scans come out in placement order)
//	clm:<id8>   → Claimable
//	bnd:<pool>  → PoolBinding
//	acc:<asset> → accrued fee balance for one asset
//	seq         → next order id
//	fee         → fee config
type Store struct {
	db *pebble.DB
}

func NewStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

const (
	prefixOrder     = "ord:"
	prefixClaimable = "clm:"
	prefixBinding   = "bnd:"
	prefixAccrual   = "acc:"
	keySequence     = "seq"
	keyFeeConfig    = "fee"
)

func idKey(prefix string, id uint64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], id)
	return k
}

func bindingKey(pool common.Hash) []byte {
	return append([]byte(prefixBinding), pool[:]...)
}

func accrualKey(asset common.Address) []byte {
	return append([]byte(prefixAccrual), asset[:]...)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

type feeConfig struct {
	FeeBps    uint32         `json:"feeBps"`
	Collector common.Address `json:"collector"`
}

// SaveOrder implements hook.Persistence.
func (s *Store) SaveOrder(o *hook.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	if err := s.db.Set(idKey(prefixOrder, o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// SaveClaimable implements hook.Persistence.
func (s *Store) SaveClaimable(id uint64, c *hook.Claimable) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal claimable: %w", err)
	}
	if err := s.db.Set(idKey(prefixClaimable, id), data, pebble.Sync); err != nil {
		return fmt.Errorf("save claimable: %w", err)
	}
	return nil
}

// SaveBinding implements hook.Persistence.
func (s *Store) SaveBinding(pool common.Hash, b amm.PoolBinding) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal binding: %w", err)
	}
	if err := s.db.Set(bindingKey(pool), data, pebble.Sync); err != nil {
		return fmt.Errorf("save binding: %w", err)
	}
	return nil
}

// SaveFeeConfig implements hook.Persistence.
func (s *Store) SaveFeeConfig(feeBps uint32, collector common.Address) error {
	data, err := json.Marshal(feeConfig{FeeBps: feeBps, Collector: collector})
	if err != nil {
		return fmt.Errorf("marshal fee config: %w", err)
	}
	if err := s.db.Set([]byte(keyFeeConfig), data, pebble.Sync); err != nil {
		return fmt.Errorf("save fee config: %w", err)
	}
	return nil
}

// SaveFeeAccrual implements hook.Persistence.
func (s *Store) SaveFeeAccrual(asset common.Address, amount *big.Int) error {
	data, err := json.Marshal(amount)
	if err != nil {
		return fmt.Errorf("marshal fee accrual: %w", err)
	}
	if err := s.db.Set(accrualKey(asset), data, pebble.Sync); err != nil {
		return fmt.Errorf("save fee accrual: %w", err)
	}
	return nil
}

// SaveNextID implements hook.Persistence.
func (s *Store) SaveNextID(next uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	if err := s.db.Set([]byte(keySequence), buf[:], pebble.Sync); err != nil {
		return fmt.Errorf("save sequence: %w", err)
	}
	return nil
}

var _ hook.Persistence = (*Store)(nil)

// LoadSnapshot reads all persisted hook state for boot-time restore.
// Returns an empty snapshot for a fresh database.
func (s *Store) LoadSnapshot() (*hook.Snapshot, error) {
	snap := &hook.Snapshot{
		Claims:      make(map[uint64]*hook.Claimable),
		Bindings:    make(map[common.Hash]amm.PoolBinding),
		FeesAccrued: make(map[common.Address]*big.Int),
	}

	if err := s.scan(prefixOrder, func(key, val []byte) error {
		var o hook.Order
		if err := json.Unmarshal(val, &o); err != nil {
			return fmt.Errorf("unmarshal order %x: %w", key, err)
		}
		snap.Orders = append(snap.Orders, &o)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.scan(prefixClaimable, func(key, val []byte) error {
		var c hook.Claimable
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("unmarshal claimable %x: %w", key, err)
		}
		id := binary.BigEndian.Uint64(key[len(prefixClaimable):])
		snap.Claims[id] = &c
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.scan(prefixBinding, func(key, val []byte) error {
		var b amm.PoolBinding
		if err := json.Unmarshal(val, &b); err != nil {
			return fmt.Errorf("unmarshal binding %x: %w", key, err)
		}
		snap.Bindings[common.BytesToHash(key[len(prefixBinding):])] = b
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.scan(prefixAccrual, func(key, val []byte) error {
		amount := new(big.Int)
		if err := json.Unmarshal(val, amount); err != nil {
			return fmt.Errorf("unmarshal fee accrual %x: %w", key, err)
		}
		snap.FeesAccrued[common.BytesToAddress(key[len(prefixAccrual):])] = amount
		return nil
	}); err != nil {
		return nil, err
	}

	if val, closer, err := s.db.Get([]byte(keySequence)); err == nil {
		snap.NextID = binary.BigEndian.Uint64(val)
		closer.Close()
	} else if err != pebble.ErrNotFound {
		return nil, fmt.Errorf("load sequence: %w", err)
	}

	if val, closer, err := s.db.Get([]byte(keyFeeConfig)); err == nil {
		var fc feeConfig
		if uerr := json.Unmarshal(val, &fc); uerr == nil {
			snap.FeeBps = fc.FeeBps
			snap.FeeCollector = fc.Collector
			snap.HasFeeConfig = true
		}
		closer.Close()
	} else if err != pebble.ErrNotFound {
		return nil, fmt.Errorf("load fee config: %w", err)
	}

	return snap, nil
}

func (s *Store) scan(prefix string, fn func(key, val []byte) error) error {
	lower := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: keyUpperBound(lower),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
