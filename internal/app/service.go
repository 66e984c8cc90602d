/**
 * @description
 * This file contains the core business logic for the ledger-service. The `Service`
 * struct orchestrates the two public operations: applying a credit or debit to an
 * account, and building a point-in-time statement.
 *
 * Key features:
 * - Validates inbound operations before any storage is touched.
 * - Runs each apply call as one atomic unit: locked read, overdraft check,
 *   balance write and record append commit together or not at all.
 * - Publishes an event to RabbitMQ after a successful commit for asynchronous
 *   consumers; publishing never affects the caller's response.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For transaction record ids.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/transfa/ledger-service/internal/domain"
	"github.com/transfa/ledger-service/internal/store"
	"github.com/transfa/ledger-service/pkg/rabbitmq"
)

const (
	// MaxDescriptionLen bounds the free-text description on a transaction.
	MaxDescriptionLen = 10

	// LastTransactionsLimit caps the statement's transaction list.
	LastTransactionsLimit = 10
)

var (
	// ErrInvalidOperation covers malformed input: unknown kind, empty or
	// over-length description, non-positive amount.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrLimitExceeded means the mutation would violate the overdraft
	// invariant balance + credit_limit >= 0.
	ErrLimitExceeded = errors.New("credit limit exceeded")
)

// Service provides the core business logic for the ledger.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	cache         StatementCache
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
	}
}

// SetStatementCache wires the optional statement read cache. The cache is a
// read-path optimization only; the account row stays the source of truth.
func (s *Service) SetStatementCache(cache StatementCache) {
	s.cache = cache
}

// Apply runs one credit or debit against an account as a single atomic unit
// and returns the post-transaction limit and balance.
func (s *Service) Apply(ctx context.Context, accountID int64, req domain.ApplyTransactionRequest) (*domain.BalanceResult, error) {
	kind, ok := domain.ParseOperationKind(req.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: kind must be %q or %q", ErrInvalidOperation, domain.KindCredit, domain.KindDebit)
	}
	if req.Description == "" {
		return nil, fmt.Errorf("%w: description is mandatory", ErrInvalidOperation)
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidOperation, MaxDescriptionLen)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be a positive integer", ErrInvalidOperation)
	}

	unit, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin unit: %w", err)
	}
	// Rollback is a no-op after a successful commit; this releases the row
	// lock on every exit path.
	defer unit.Rollback(ctx)

	acct, err := unit.LockAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("locked read: %w", err)
	}

	delta := req.Amount
	if kind == domain.KindDebit {
		delta = -delta
	}
	newBalance := acct.Balance + delta
	if newBalance+acct.CreditLimit < 0 {
		return nil, ErrLimitExceeded
	}

	if err := unit.UpdateBalance(ctx, accountID, newBalance); err != nil {
		return nil, fmt.Errorf("balance write: %w", err)
	}
	rec := &domain.TransactionRecord{
		ID:          uuid.New(),
		AccountID:   accountID,
		Kind:        kind,
		Amount:      req.Amount,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := unit.AppendTransaction(ctx, rec); err != nil {
		return nil, fmt.Errorf("record append: %w", err)
	}
	if err := unit.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.afterCommit(ctx, accountID, rec, newBalance)

	return &domain.BalanceResult{Limit: acct.CreditLimit, Balance: newBalance}, nil
}

// afterCommit runs the best-effort post-commit side effects: event publishing
// and statement cache invalidation. Failures here are logged, never surfaced.
func (s *Service) afterCommit(ctx context.Context, accountID int64, rec *domain.TransactionRecord, balance int64) {
	if s.eventProducer != nil {
		event := rabbitmq.TransactionEvent{
			AccountID: accountID,
			Kind:      string(rec.Kind),
			Amount:    rec.Amount,
			Balance:   balance,
			Timestamp: rec.CreatedAt,
		}
		if err := s.eventProducer.PublishTransactionEvent(ctx, event); err != nil {
			log.Printf("level=warn component=ledger msg=\"event publish failed\" account_id=%d err=%v", accountID, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, accountID); err != nil {
			log.Printf("level=warn component=ledger msg=\"statement cache invalidate failed\" account_id=%d err=%v", accountID, err)
		}
	}
}

// GetStatement builds a point-in-time snapshot: balance and limit from one
// account read, plus up to the last ten transactions, newest first. The read
// path takes no locks and never blocks an in-flight apply.
func (s *Service) GetStatement(ctx context.Context, accountID int64) (*domain.Statement, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.Get(ctx, accountID)
		if err != nil {
			log.Printf("level=warn component=ledger msg=\"statement cache read failed\" account_id=%d err=%v", accountID, err)
		} else if hit {
			return cached, nil
		}
	}

	acct, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("account read: %w", err)
	}
	snapshotAt := time.Now().UTC()

	records, err := s.repo.LastTransactions(ctx, accountID, LastTransactionsLimit)
	if err != nil {
		return nil, fmt.Errorf("last transactions: %w", err)
	}

	statement := &domain.Statement{
		Balance: domain.StatementBalance{
			Total:     acct.Balance,
			Limit:     acct.CreditLimit,
			Timestamp: snapshotAt,
		},
		LastTransactions: make([]domain.StatementTransaction, 0, len(records)),
	}
	for _, rec := range records {
		statement.LastTransactions = append(statement.LastTransactions, domain.StatementTransaction{
			Amount:      rec.Amount,
			Kind:        rec.Kind,
			Description: rec.Description,
			Timestamp:   rec.CreatedAt,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, accountID, statement); err != nil {
			log.Printf("level=warn component=ledger msg=\"statement cache write failed\" account_id=%d err=%v", accountID, err)
		}
	}
	return statement, nil
}

// GetAccount returns the committed state of one account.
func (s *Service) GetAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID)
}

// ListAccounts returns all provisioned accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx)
}
