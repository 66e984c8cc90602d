/**
 * @description
 * This file provides an in-memory implementation of the `Repository` interface.
 * It backs the test suite and lets the service run locally without a database.
 *
 * The atomic unit is modeled with one mutex per account row: LockAccount takes
 * the row mutex for the duration of the unit, writes are staged inside the unit
 * and applied to the shared maps only on Commit, so uncommitted state is never
 * observable and a rollback leaves no trace.
 *
 * @dependencies
 * - context, sort, sync: Standard Go libraries.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/transfa/ledger-service/internal/domain"
)

// MemoryRepository is a thread-safe in-memory implementation of Repository.
type MemoryRepository struct {
	mu       sync.RWMutex // guards accounts, records and the lock map
	locks    map[int64]*sync.Mutex
	accounts map[int64]*domain.Account
	records  map[int64][]domain.TransactionRecord
}

// NewMemoryRepository creates a memory store provisioned with the given accounts.
func NewMemoryRepository(accounts ...domain.Account) *MemoryRepository {
	repo := &MemoryRepository{
		locks:    make(map[int64]*sync.Mutex),
		accounts: make(map[int64]*domain.Account),
		records:  make(map[int64][]domain.TransactionRecord),
	}
	for _, acct := range accounts {
		a := acct
		repo.accounts[a.ID] = &a
	}
	return repo
}

// rowLock returns the mutex guarding one account row, creating it on first use.
func (r *MemoryRepository) rowLock(accountID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[accountID]; !ok {
		r.locks[accountID] = &sync.Mutex{}
	}
	return r.locks[accountID]
}

// Begin opens a new atomic unit over the memory store.
func (r *MemoryRepository) Begin(ctx context.Context) (Unit, error) {
	return &memoryUnit{
		repo:     r,
		held:     make(map[int64]*sync.Mutex),
		balances: make(map[int64]int64),
	}, nil
}

// FindAccountByID returns a point-in-time copy of the committed account state.
func (r *MemoryRepository) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *acct
	return &copied, nil
}

// ListAccounts returns all provisioned accounts ordered by id.
func (r *MemoryRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := make([]domain.Account, 0, len(r.accounts))
	for _, acct := range r.accounts {
		accounts = append(accounts, *acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// LastTransactions returns up to limit committed records, newest first.
// Records are appended in commit order, so the tail of the slice is the most
// recent and ties on created_at keep commit order.
func (r *MemoryRepository) LastTransactions(ctx context.Context, accountID int64, limit int) ([]domain.TransactionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.records[accountID]
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]domain.TransactionRecord, 0, limit)
	for i := len(all) - 1; i >= len(all)-limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// TransactionCount reports the committed record count for one account.
func (r *MemoryRepository) TransactionCount(accountID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records[accountID])
}

// memoryUnit stages writes until Commit and holds the row locks it acquired
// until the unit ends on either path.
type memoryUnit struct {
	repo     *MemoryRepository
	held     map[int64]*sync.Mutex
	balances map[int64]int64
	staged   []domain.TransactionRecord
	done     bool
}

func (u *memoryUnit) LockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	if u.done {
		return nil, errors.New("unit already closed")
	}
	if _, locked := u.held[accountID]; !locked {
		l := u.repo.rowLock(accountID)
		l.Lock() // blocks while another unit holds this account's lock
		u.held[accountID] = l
	}

	u.repo.mu.RLock()
	defer u.repo.mu.RUnlock()
	acct, ok := u.repo.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *acct
	return &copied, nil
}

func (u *memoryUnit) UpdateBalance(ctx context.Context, accountID int64, balance int64) error {
	if u.done {
		return errors.New("unit already closed")
	}
	if _, locked := u.held[accountID]; !locked {
		return ErrAccountNotLocked
	}
	u.balances[accountID] = balance
	return nil
}

func (u *memoryUnit) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	if u.done {
		return errors.New("unit already closed")
	}
	if _, locked := u.held[rec.AccountID]; !locked {
		return ErrAccountNotLocked
	}
	u.staged = append(u.staged, *rec)
	return nil
}

func (u *memoryUnit) Commit(ctx context.Context) error {
	if u.done {
		return errors.New("unit already closed")
	}

	u.repo.mu.Lock()
	for accountID := range u.balances {
		if _, ok := u.repo.accounts[accountID]; !ok {
			u.repo.mu.Unlock()
			u.finish()
			return ErrAccountNotFound
		}
	}
	for accountID, balance := range u.balances {
		u.repo.accounts[accountID].Balance = balance
	}
	for _, rec := range u.staged {
		u.repo.records[rec.AccountID] = append(u.repo.records[rec.AccountID], rec)
	}
	u.repo.mu.Unlock()

	u.finish()
	return nil
}

func (u *memoryUnit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.balances = nil
	u.staged = nil
	u.finish()
	return nil
}

// finish releases every held row lock and closes the unit.
func (u *memoryUnit) finish() {
	for _, l := range u.held {
		l.Unlock()
	}
	u.held = make(map[int64]*sync.Mutex)
	u.done = true
}
