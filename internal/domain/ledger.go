/**
 * @description
 * This file defines the core domain models for the ledger-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts and balances are stored as `int64` to represent the value in the
 *   smallest currency unit, which avoids floating-point inaccuracies with
 *   financial data.
 * - Account.Balance is the only mutable field in the model; everything else
 *   is fixed at provisioning time or at record-creation time.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// OperationKind discriminates the two kinds of ledger operations.
type OperationKind string

const (
	KindCredit OperationKind = "credit"
	KindDebit  OperationKind = "debit"
)

// ParseOperationKind validates a wire-level kind string.
func ParseOperationKind(s string) (OperationKind, bool) {
	switch OperationKind(s) {
	case KindCredit:
		return KindCredit, true
	case KindDebit:
		return KindDebit, true
	}
	return "", false
}

// Account represents one ledger account. Accounts are provisioned outside the
// API surface and live for the lifetime of the service; CreditLimit is the
// maximum negative balance tolerated, expressed as a non-negative magnitude.
// Invariant: Balance + CreditLimit >= 0 after every committed mutation.
type Account struct {
	ID          int64 `json:"id"`
	CreditLimit int64 `json:"creditLimit"`
	Balance     int64 `json:"balance"`
}

// TransactionRecord is the append-only ledger record for one applied
// operation. Records are immutable once created; CreatedAt is server-assigned
// and non-decreasing per account because writes are serialized per account.
type TransactionRecord struct {
	ID          uuid.UUID     `json:"id"`
	AccountID   int64         `json:"accountId"`
	Kind        OperationKind `json:"kind"`
	Amount      int64         `json:"amount"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ApplyTransactionRequest is the DTO for incoming transaction API requests.
type ApplyTransactionRequest struct {
	Kind        string `json:"kind"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// BalanceResult is returned to the caller after a committed mutation.
type BalanceResult struct {
	Limit   int64 `json:"limit"`
	Balance int64 `json:"balance"`
}

// Statement is a point-in-time snapshot of an account: the current balance
// and limit from a single account read, plus the most recent transactions.
type Statement struct {
	Balance          StatementBalance       `json:"balance"`
	LastTransactions []StatementTransaction `json:"lastTransactions"`
}

// StatementBalance carries the balance snapshot portion of a statement.
// Total and Limit always originate from the same single account read.
type StatementBalance struct {
	Total     int64     `json:"total"`
	Limit     int64     `json:"limit"`
	Timestamp time.Time `json:"timestamp"`
}

// StatementTransaction is the statement view of one transaction record.
type StatementTransaction struct {
	Amount      int64         `json:"amount"`
	Kind        OperationKind `json:"kind"`
	Description string        `json:"description"`
	Timestamp   time.Time     `json:"timestamp"`
}
