package postgres

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txHolder is shared by a TxManager and every repository built against the
// same pool, so a repository call made inside TxManager.WithinTx runs on the
// already-open transaction instead of grabbing its own pool connection. The
// pattern-learning triple-write (spec.md §4.10) is what this exists for:
// TransactionRepository.ApplyUserCorrection, LearnedPatternRepository.Upsert,
// ContactRepository.Upsert and GlobalSuggestionRepository.Upsert all need to
// land in the same commit, but none of their interfaces accept a context or
// transaction argument.
type txHolder struct {
	mu     sync.RWMutex
	tx     pgx.Tx
	active sync.Mutex
}

func newTxHolder() *txHolder {
	return &txHolder{}
}

// NewTxHolder builds the opaque handle cmd/api, cmd/syncd, and cmd/batch
// each construct once at startup and thread through every repository
// constructor and NewTxManager, so they all observe the same open
// transaction during a WithinTx call.
func NewTxHolder() *txHolder {
	return newTxHolder()
}

func (h *txHolder) querier(pool *pgxpool.Pool) querier {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.tx != nil {
		return h.tx
	}
	return pool
}

// TxManager implements domain.TxManager against a pgxpool.Pool. Concurrent
// WithinTx calls on the same TxManager (e.g. two profiles' syncs correcting
// categories at once) are serialized by h.active -- rare, short writes, so
// the contention cost is negligible next to the safety of never letting one
// call's transaction bleed into another's.
type TxManager struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

// NewTxManager builds a TxManager. holder must be the same txHolder instance
// passed to every repository constructor sharing this pool, so they observe
// the transaction WithinTx opens.
func NewTxManager(pool *pgxpool.Pool, holder *txHolder) *TxManager {
	return &TxManager{pool: pool, holder: holder}
}

// WithinTx implements domain.TxManager.
func (m *TxManager) WithinTx(fn func() error) error {
	m.holder.active.Lock()
	defer m.holder.active.Unlock()

	tx, err := m.pool.Begin(context.Background())
	if err != nil {
		return err
	}

	m.holder.mu.Lock()
	m.holder.tx = tx
	m.holder.mu.Unlock()

	defer func() {
		m.holder.mu.Lock()
		m.holder.tx = nil
		m.holder.mu.Unlock()
	}()

	if err := fn(); err != nil {
		_ = tx.Rollback(context.Background())
		return err
	}
	return tx.Commit(context.Background())
}
