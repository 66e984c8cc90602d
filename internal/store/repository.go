/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the ledger-service. By defining an interface,
 * we decouple the application's business logic from the specific database implementation
 * (e.g., PostgreSQL), making the code more modular and easier to test.
 *
 * The `Unit` interface models one atomic unit of work over the backing store.
 * A unit spans exactly one apply call: lock acquire, validate, write, append,
 * then commit or rollback. Locks acquired by a unit are held until the unit
 * ends on either path.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/transfa/ledger-service/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountNotLocked is returned when a unit is asked to write an
	// account row it never locked.
	ErrAccountNotLocked = errors.New("account not locked in this unit")
)

// Repository defines the set of methods for interacting with the ledger store.
type Repository interface {
	// Begin opens a new atomic unit. The caller must end the unit with
	// Commit or Rollback; Rollback after a successful Commit is a no-op.
	Begin(ctx context.Context) (Unit, error)

	// FindAccountByID is a non-locking, point-in-time account read. Used by
	// the statement path only; it never participates in a mutation.
	FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error)

	// ListAccounts returns all provisioned accounts ordered by id.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// LastTransactions returns up to limit records for the account, ordered
	// by created_at descending.
	LastTransactions(ctx context.Context, accountID int64, limit int) ([]domain.TransactionRecord, error)
}

// Unit is one atomic unit of work. The balance write and the record append
// become visible together on Commit, or not at all.
type Unit interface {
	// LockAccount acquires an exclusive lock scoped to the single account row
	// for the duration of the unit and returns the current account state.
	// It blocks while another in-flight unit holds the same account's lock;
	// units on other accounts are never blocked.
	LockAccount(ctx context.Context, accountID int64) (*domain.Account, error)

	// UpdateBalance stages the new balance for a locked account. The write is
	// not observable until the unit commits.
	UpdateBalance(ctx context.Context, accountID int64, balance int64) error

	// AppendTransaction stages one immutable transaction record.
	AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
