package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/transfa/ledger-service/internal/domain"
	"github.com/transfa/ledger-service/internal/store"
	"github.com/transfa/ledger-service/pkg/rabbitmq"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []rabbitmq.TransactionEvent
}

func (p *recordingPublisher) PublishTransactionEvent(ctx context.Context, event rabbitmq.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestService(accounts ...domain.Account) (*Service, *store.MemoryRepository, *recordingPublisher) {
	repo := store.NewMemoryRepository(accounts...)
	publisher := &recordingPublisher{}
	return NewService(repo, publisher), repo, publisher
}

func TestApply_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  domain.ApplyTransactionRequest
	}{
		{
			name: "rejects unknown kind",
			req:  domain.ApplyTransactionRequest{Kind: "x", Amount: 100, Description: "groceries"},
		},
		{
			name: "rejects empty description",
			req:  domain.ApplyTransactionRequest{Kind: "credit", Amount: 100, Description: ""},
		},
		{
			name: "rejects over-length description",
			req:  domain.ApplyTransactionRequest{Kind: "credit", Amount: 100, Description: "elevencharss"},
		},
		{
			name: "rejects zero amount",
			req:  domain.ApplyTransactionRequest{Kind: "debit", Amount: 0, Description: "rent"},
		},
		{
			name: "rejects negative amount",
			req:  domain.ApplyTransactionRequest{Kind: "debit", Amount: -5, Description: "rent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, publisher := newTestService(domain.Account{ID: 1, CreditLimit: 1000, Balance: 50})

			_, err := svc.Apply(context.Background(), 1, tt.req)
			if !errors.Is(err, ErrInvalidOperation) {
				t.Fatalf("expected ErrInvalidOperation, got %v", err)
			}

			acct, readErr := repo.FindAccountByID(context.Background(), 1)
			if readErr != nil {
				t.Fatalf("unexpected read error: %v", readErr)
			}
			if acct.Balance != 50 {
				t.Fatalf("expected balance unchanged at 50, got %d", acct.Balance)
			}
			if n := repo.TransactionCount(1); n != 0 {
				t.Fatalf("expected no transaction records, got %d", n)
			}
			if publisher.count() != 0 {
				t.Fatalf("expected no events published, got %d", publisher.count())
			}
		})
	}
}

func TestApply_AcceptsMaxLengthDescription(t *testing.T) {
	svc, _, _ := newTestService(domain.Account{ID: 1, CreditLimit: 0, Balance: 0})

	result, err := svc.Apply(context.Background(), 1, domain.ApplyTransactionRequest{
		Kind: "credit", Amount: 10, Description: strings.Repeat("a", 10),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Balance != 10 {
		t.Fatalf("expected balance 10, got %d", result.Balance)
	}
}

func TestApply_CreditThenDebitRestoresBalance(t *testing.T) {
	svc, _, publisher := newTestService(domain.Account{ID: 7, CreditLimit: 500, Balance: 120})

	if _, err := svc.Apply(context.Background(), 7, domain.ApplyTransactionRequest{Kind: "credit", Amount: 300, Description: "salary"}); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	result, err := svc.Apply(context.Background(), 7, domain.ApplyTransactionRequest{Kind: "debit", Amount: 300, Description: "rent"})
	if err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	if result.Balance != 120 {
		t.Fatalf("expected balance restored to 120, got %d", result.Balance)
	}
	if result.Limit != 500 {
		t.Fatalf("expected limit 500, got %d", result.Limit)
	}
	if publisher.count() != 2 {
		t.Fatalf("expected 2 published events, got %d", publisher.count())
	}
}

func TestApply_OverdraftBoundary(t *testing.T) {
	svc, repo, _ := newTestService(domain.Account{ID: 1, CreditLimit: 1000, Balance: 0})

	// Debiting exactly down to balance + limit == 0 is allowed.
	result, err := svc.Apply(context.Background(), 1, domain.ApplyTransactionRequest{Kind: "debit", Amount: 1000, Description: "all in"})
	if err != nil {
		t.Fatalf("boundary debit failed: %v", err)
	}
	if result.Balance != -1000 {
		t.Fatalf("expected balance -1000, got %d", result.Balance)
	}

	// One more unit crosses the invariant and must abort with zero effect.
	_, err = svc.Apply(context.Background(), 1, domain.ApplyTransactionRequest{Kind: "debit", Amount: 1, Description: "one more"})
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	acct, err := repo.FindAccountByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if acct.Balance != -1000 {
		t.Fatalf("expected balance to remain -1000, got %d", acct.Balance)
	}
	if n := repo.TransactionCount(1); n != 1 {
		t.Fatalf("expected exactly 1 transaction record, got %d", n)
	}
}

func TestApply_UnknownAccount(t *testing.T) {
	svc, repo, publisher := newTestService(domain.Account{ID: 1, CreditLimit: 100, Balance: 0})

	_, err := svc.Apply(context.Background(), 99, domain.ApplyTransactionRequest{Kind: "credit", Amount: 10, Description: "lost"})
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if n := repo.TransactionCount(99); n != 0 {
		t.Fatalf("expected no records for unknown account, got %d", n)
	}
	if publisher.count() != 0 {
		t.Fatalf("expected no events published, got %d", publisher.count())
	}
}

// failingCommitRepo wraps a working repository but fails every commit,
// simulating storage becoming unavailable at the end of the unit.
type failingCommitRepo struct {
	store.Repository
}

func (r *failingCommitRepo) Begin(ctx context.Context) (store.Unit, error) {
	unit, err := r.Repository.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingCommitUnit{Unit: unit}, nil
}

type failingCommitUnit struct {
	store.Unit
}

func (u *failingCommitUnit) Commit(ctx context.Context) error {
	u.Unit.Rollback(ctx)
	return errors.New("storage unavailable")
}

func TestApply_CommitFailureLeavesNoTrace(t *testing.T) {
	inner := store.NewMemoryRepository(domain.Account{ID: 1, CreditLimit: 1000, Balance: 40})
	publisher := &recordingPublisher{}
	svc := NewService(&failingCommitRepo{Repository: inner}, publisher)

	_, err := svc.Apply(context.Background(), 1, domain.ApplyTransactionRequest{Kind: "debit", Amount: 10, Description: "doomed"})
	if err == nil {
		t.Fatal("expected commit failure to surface an error")
	}
	if errors.Is(err, ErrInvalidOperation) || errors.Is(err, ErrLimitExceeded) || errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("commit failure must not map to a client error, got %v", err)
	}

	acct, readErr := inner.FindAccountByID(context.Background(), 1)
	if readErr != nil {
		t.Fatalf("unexpected read error: %v", readErr)
	}
	if acct.Balance != 40 {
		t.Fatalf("expected balance unchanged at 40, got %d", acct.Balance)
	}
	if n := inner.TransactionCount(1); n != 0 {
		t.Fatalf("expected no transaction records, got %d", n)
	}
	if publisher.count() != 0 {
		t.Fatalf("expected no events after failed commit, got %d", publisher.count())
	}
}

func TestApply_InvariantHoldsAfterMixedOperations(t *testing.T) {
	svc, repo, _ := newTestService(domain.Account{ID: 3, CreditLimit: 200, Balance: 0})

	ops := []domain.ApplyTransactionRequest{
		{Kind: "debit", Amount: 150, Description: "d1"},
		{Kind: "credit", Amount: 50, Description: "c1"},
		{Kind: "debit", Amount: 300, Description: "d2"}, // exceeds limit, must abort
		{Kind: "debit", Amount: 100, Description: "d3"},
	}
	for _, op := range ops {
		_, err := svc.Apply(context.Background(), 3, op)
		if err != nil && !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("unexpected error for %+v: %v", op, err)
		}

		acct, readErr := repo.FindAccountByID(context.Background(), 3)
		if readErr != nil {
			t.Fatalf("unexpected read error: %v", readErr)
		}
		if acct.Balance+acct.CreditLimit < 0 {
			t.Fatalf("invariant violated: balance=%d limit=%d", acct.Balance, acct.CreditLimit)
		}
	}

	acct, err := repo.FindAccountByID(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if acct.Balance != -200 {
		t.Fatalf("expected final balance -200, got %d", acct.Balance)
	}
	if n := repo.TransactionCount(3); n != 3 {
		t.Fatalf("expected 3 committed records, got %d", n)
	}
}
