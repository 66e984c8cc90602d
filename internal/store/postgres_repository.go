/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the `accounts` and
 * `transactions` tables.
 *
 * The atomic unit maps directly onto a pgx transaction: LockAccount issues
 * `SELECT ... FOR UPDATE` so concurrent units on the same account serialize at
 * the row lock, while units on other accounts proceed untouched.
 *
 * @dependencies
 * - context, errors, fmt: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transfa/ledger-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the ledger tables and the index serving the last-10
// query if they do not exist yet. It is safe to run on every startup.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id           BIGINT PRIMARY KEY,
			credit_limit BIGINT NOT NULL CHECK (credit_limit >= 0),
			balance      BIGINT NOT NULL DEFAULT 0,
			CHECK (balance + credit_limit >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id          UUID PRIMARY KEY,
			account_id  BIGINT NOT NULL REFERENCES accounts (id),
			kind        VARCHAR(6) NOT NULL CHECK (kind IN ('credit', 'debit')),
			amount      BIGINT NOT NULL CHECK (amount > 0),
			description VARCHAR(10) NOT NULL CHECK (length(description) > 0),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_created
			ON transactions (account_id, created_at DESC)`,
	}
	for _, stmt := range ddl {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	return nil
}

// SeedAccounts provisions the fixed account set. Existing accounts are left
// untouched so a restart never resets balances.
func (r *PostgresRepository) SeedAccounts(ctx context.Context, accounts []domain.Account) error {
	for _, acct := range accounts {
		_, err := r.db.Exec(ctx,
			`INSERT INTO accounts (id, credit_limit, balance) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO NOTHING`,
			acct.ID, acct.CreditLimit, acct.Balance,
		)
		if err != nil {
			return fmt.Errorf("seed account %d: %w", acct.ID, err)
		}
	}
	return nil
}

// Begin opens a database transaction wrapped as a Unit.
func (r *PostgresRepository) Begin(ctx context.Context) (Unit, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &postgresUnit{tx: tx}, nil
}

// FindAccountByID retrieves an account without locking it.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID int64) (*domain.Account, error) {
	var acct domain.Account
	query := `SELECT id, credit_limit, balance FROM accounts WHERE id = $1`
	err := r.db.QueryRow(ctx, query, accountID).Scan(&acct.ID, &acct.CreditLimit, &acct.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

// ListAccounts returns all provisioned accounts ordered by id.
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, credit_limit, balance FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var acct domain.Account
		if err := rows.Scan(&acct.ID, &acct.CreditLimit, &acct.Balance); err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// LastTransactions returns the most recent records for one account, newest first.
func (r *PostgresRepository) LastTransactions(ctx context.Context, accountID int64, limit int) ([]domain.TransactionRecord, error) {
	query := `
		SELECT id, account_id, kind, amount, description, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TransactionRecord
	for rows.Next() {
		var rec domain.TransactionRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Kind, &rec.Amount, &rec.Description, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// postgresUnit adapts a pgx transaction to the Unit interface. Row locks
// taken with FOR UPDATE are released by the database when the transaction
// commits or rolls back.
type postgresUnit struct {
	tx pgx.Tx
}

func (u *postgresUnit) LockAccount(ctx context.Context, accountID int64) (*domain.Account, error) {
	var acct domain.Account
	// FOR UPDATE locks the row, serializing concurrent units on this account.
	query := `SELECT id, credit_limit, balance FROM accounts WHERE id = $1 FOR UPDATE`
	err := u.tx.QueryRow(ctx, query, accountID).Scan(&acct.ID, &acct.CreditLimit, &acct.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &acct, nil
}

func (u *postgresUnit) UpdateBalance(ctx context.Context, accountID int64, balance int64) error {
	tag, err := u.tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, balance, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (u *postgresUnit) AppendTransaction(ctx context.Context, rec *domain.TransactionRecord) error {
	_, err := u.tx.Exec(ctx,
		`INSERT INTO transactions (id, account_id, kind, amount, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.AccountID, string(rec.Kind), rec.Amount, rec.Description, rec.CreatedAt,
	)
	return err
}

func (u *postgresUnit) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *postgresUnit) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
