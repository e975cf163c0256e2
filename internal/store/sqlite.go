package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/shopspring/decimal"

	"rxledger/bank-import/internal/models"
)

// SQLite implements Store on a local SQLite database. Dedupe lookups run on
// the (bank_account_id, external_id) and (bank_account_id, date, amount)
// indexes, never full scans.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at dbPath. Use
// ":memory:" for an ephemeral database.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite does not benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS import_batches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	bank_account_id INTEGER NOT NULL,
	pharmacy_id INTEGER NOT NULL,
	file_name TEXT NOT NULL,
	period_start TEXT,
	period_end TEXT,
	status TEXT NOT NULL,
	uploaded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id INTEGER NOT NULL REFERENCES import_batches(id),
	bank_account_id INTEGER NOT NULL,
	row_number INTEGER NOT NULL,
	date TEXT NOT NULL,
	description TEXT NOT NULL,
	raw_description TEXT NOT NULL,
	reference TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL,
	balance TEXT,
	external_id TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	classified_at TEXT,
	matched_rule_id INTEGER,
	ai_suggestion_id INTEGER,
	ledger_entry_id INTEGER,
	suspected_duplicate_of INTEGER,
	duplicate_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_account_external
	ON transactions(bank_account_id, external_id);
CREATE INDEX IF NOT EXISTS idx_transactions_account_date_amount
	ON transactions(bank_account_id, date, amount);
CREATE INDEX IF NOT EXISTS idx_transactions_batch ON transactions(batch_id);

CREATE TABLE IF NOT EXISTS classification_rules (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pharmacy_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	priority INTEGER NOT NULL,
	conditions TEXT NOT NULL,
	allocations TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_pharmacy ON classification_rules(pharmacy_id, is_active);

CREATE TABLE IF NOT EXISTS ledger_accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pharmacy_id INTEGER NOT NULL,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_suggestions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id INTEGER NOT NULL REFERENCES transactions(id),
	account_id INTEGER NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	confidence REAL NOT NULL,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	resolved_at TEXT
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	transaction_id INTEGER NOT NULL REFERENCES transactions(id),
	date TEXT NOT NULL,
	amount TEXT NOT NULL,
	account_id INTEGER NOT NULL,
	vat_code TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL,
	source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries(transaction_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

const timeLayout = time.RFC3339

func (s *SQLite) CreateBatch(ctx context.Context, batch *models.ImportBatch) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO import_batches (bank_account_id, pharmacy_id, file_name, period_start, period_end, status, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batch.BankAccountID, batch.PharmacyID, batch.FileName,
		nullDate(batch.PeriodStart), nullDate(batch.PeriodEnd),
		string(batch.Status), batch.UploadedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	batch.ID, err = res.LastInsertId()
	return err
}

func (s *SQLite) GetBatch(ctx context.Context, id int64) (*models.ImportBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, bank_account_id, pharmacy_id, file_name, period_start, period_end, status, uploaded_at
		FROM import_batches WHERE id = ?`, id)

	var (
		b                      models.ImportBatch
		periodStart, periodEnd sql.NullString
		status, uploadedAt     string
	)
	if err := row.Scan(&b.ID, &b.BankAccountID, &b.PharmacyID, &b.FileName, &periodStart, &periodEnd, &status, &uploadedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("batch %d not found", id)
		}
		return nil, fmt.Errorf("loading batch %d: %w", id, err)
	}

	b.Status = models.BatchStatus(status)
	b.PeriodStart = parseNullDate(periodStart)
	b.PeriodEnd = parseNullDate(periodEnd)
	if t, err := time.Parse(timeLayout, uploadedAt); err == nil {
		b.UploadedAt = t
	}
	return &b, nil
}

func (s *SQLite) UpdateBatch(ctx context.Context, batch *models.ImportBatch) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE import_batches SET period_start = ?, period_end = ?, status = ? WHERE id = ?`,
		nullDate(batch.PeriodStart), nullDate(batch.PeriodEnd), string(batch.Status), batch.ID)
	if err != nil {
		return fmt.Errorf("updating batch %d: %w", batch.ID, err)
	}
	return nil
}

func (s *SQLite) InsertTransaction(ctx context.Context, tx *models.PersistedTransaction) error {
	var balance sql.NullString
	if tx.Balance != nil {
		balance = sql.NullString{String: amountKey(*tx.Balance), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			batch_id, bank_account_id, row_number, date, description, raw_description,
			reference, amount, balance, external_id, status, classified_at,
			matched_rule_id, ai_suggestion_id, ledger_entry_id, suspected_duplicate_of, duplicate_reason
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.BatchID, tx.BankAccountID, tx.RowNumber, dateKey(tx.Date), tx.Description, tx.RawDescription,
		tx.Reference, amountKey(tx.Amount), balance, tx.ExternalID, string(tx.Status), nullTime(tx.ClassifiedAt),
		nullInt(tx.MatchedRuleID), nullInt(tx.AISuggestionID), nullInt(tx.LedgerEntryID),
		nullInt(tx.SuspectedDuplicateOf), tx.DuplicateReason)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	tx.ID, err = res.LastInsertId()
	return err
}

func (s *SQLite) UpdateTransaction(ctx context.Context, tx *models.PersistedTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			status = ?, classified_at = ?, matched_rule_id = ?, ai_suggestion_id = ?,
			ledger_entry_id = ?, suspected_duplicate_of = ?, duplicate_reason = ?
		WHERE id = ?`,
		string(tx.Status), nullTime(tx.ClassifiedAt), nullInt(tx.MatchedRuleID), nullInt(tx.AISuggestionID),
		nullInt(tx.LedgerEntryID), nullInt(tx.SuspectedDuplicateOf), tx.DuplicateReason, tx.ID)
	if err != nil {
		return fmt.Errorf("updating transaction %d: %w", tx.ID, err)
	}
	return nil
}

const transactionColumns = `
	id, batch_id, bank_account_id, row_number, date, description, raw_description,
	reference, amount, balance, external_id, status, classified_at,
	matched_rule_id, ai_suggestion_id, ledger_entry_id, suspected_duplicate_of, duplicate_reason`

func (s *SQLite) GetTransaction(ctx context.Context, id int64) (*models.PersistedTransaction, error) {
	rows, err := s.queryTransactions(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("transaction %d not found", id)
	}
	return &rows[0], nil
}

func (s *SQLite) TransactionsByBatch(ctx context.Context, batchID int64) ([]models.PersistedTransaction, error) {
	return s.queryTransactions(ctx, `WHERE batch_id = ? ORDER BY row_number`, batchID)
}

func (s *SQLite) ByExternalID(ctx context.Context, bankAccountID int64, externalID string) ([]models.PersistedTransaction, error) {
	return s.queryTransactions(ctx, `WHERE bank_account_id = ? AND external_id = ? AND external_id != '' ORDER BY id`, bankAccountID, externalID)
}

func (s *SQLite) ByDateAmount(ctx context.Context, bankAccountID int64, date time.Time, amount decimal.Decimal) ([]models.PersistedTransaction, error) {
	return s.queryTransactions(ctx, `WHERE bank_account_id = ? AND date = ? AND amount = ? ORDER BY id`,
		bankAccountID, dateKey(date), amountKey(amount))
}

func (s *SQLite) queryTransactions(ctx context.Context, where string, args ...any) ([]models.PersistedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.PersistedTransaction
	for rows.Next() {
		var (
			tx                      models.PersistedTransaction
			date, amount, status    string
			balance, classifiedAt   sql.NullString
			ruleID, suggID, entryID sql.NullInt64
			dupOf                   sql.NullInt64
		)
		if err := rows.Scan(&tx.ID, &tx.BatchID, &tx.BankAccountID, &tx.RowNumber, &date, &tx.Description,
			&tx.RawDescription, &tx.Reference, &amount, &balance, &tx.ExternalID, &status, &classifiedAt,
			&ruleID, &suggID, &entryID, &dupOf, &tx.DuplicateReason); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		if tx.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("bad date %q on transaction %d: %w", date, tx.ID, err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount %q on transaction %d: %w", amount, tx.ID, err)
		}
		if balance.Valid {
			if bal, balErr := decimal.NewFromString(balance.String); balErr == nil {
				tx.Balance = &bal
			}
		}
		tx.Status = models.ClassificationStatus(status)
		tx.ClassifiedAt = parseNullTime(classifiedAt)
		tx.MatchedRuleID = fromNullInt(ruleID)
		tx.AISuggestionID = fromNullInt(suggID)
		tx.LedgerEntryID = fromNullInt(entryID)
		tx.SuspectedDuplicateOf = fromNullInt(dupOf)
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *SQLite) ActiveRules(ctx context.Context, pharmacyID int64) ([]models.ClassificationRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pharmacy_id, name, type, priority, conditions, allocations, created_at
		FROM classification_rules
		WHERE pharmacy_id = ? AND is_active = 1
		ORDER BY priority, created_at, id`, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ClassificationRule
	for rows.Next() {
		var (
			r                   models.ClassificationRule
			ruleType, createdAt string
			condJSON, allocJSON []byte
		)
		if err := rows.Scan(&r.ID, &r.PharmacyID, &r.Name, &ruleType, &r.Priority, &condJSON, &allocJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		r.Type = models.RuleType(ruleType)
		r.IsActive = true
		if err := json.Unmarshal(condJSON, &r.Conditions); err != nil {
			return nil, fmt.Errorf("decoding conditions of rule %d: %w", r.ID, err)
		}
		if err := json.Unmarshal(allocJSON, &r.Allocations); err != nil {
			return nil, fmt.Errorf("decoding allocations of rule %d: %w", r.ID, err)
		}
		if t, tErr := time.Parse(timeLayout, createdAt); tErr == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRule persists a rule. Administration happens outside this core; the
// CLI uses it to seed rule sets.
func (s *SQLite) SaveRule(ctx context.Context, r *models.ClassificationRule) error {
	condJSON, err := json.Marshal(r.Conditions)
	if err != nil {
		return fmt.Errorf("encoding conditions: %w", err)
	}
	allocJSON, err := json.Marshal(r.Allocations)
	if err != nil {
		return fmt.Errorf("encoding allocations: %w", err)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_rules (pharmacy_id, name, type, priority, conditions, allocations, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.PharmacyID, r.Name, string(r.Type), r.Priority, condJSON, allocJSON,
		boolToInt(r.IsActive), r.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("inserting rule: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (s *SQLite) AccountExists(ctx context.Context, pharmacyID, accountID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM ledger_accounts WHERE pharmacy_id = ? AND id = ?`, pharmacyID, accountID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking account %d: %w", accountID, err)
	}
	return true, nil
}

// SaveAccount registers a ledger account. Chart-of-accounts management is
// external; the CLI uses it for seeding.
func (s *SQLite) SaveAccount(ctx context.Context, pharmacyID int64, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ledger_accounts (pharmacy_id, name) VALUES (?, ?)`, pharmacyID, name)
	if err != nil {
		return 0, fmt.Errorf("inserting account: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLite) ListAccounts(ctx context.Context, pharmacyID int64) ([]models.LedgerAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, pharmacy_id, name FROM ledger_accounts WHERE pharmacy_id = ? ORDER BY id`, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.LedgerAccount
	for rows.Next() {
		var a models.LedgerAccount
		if err := rows.Scan(&a.ID, &a.PharmacyID, &a.Name); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) CreateSuggestion(ctx context.Context, sg *models.AISuggestion) error {
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ai_suggestions (transaction_id, account_id, description, type, confidence, status, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sg.TransactionID, sg.AccountID, sg.Description, string(sg.Type), sg.Confidence,
		string(sg.Status), sg.CreatedAt.UTC().Format(timeLayout), nullTime(sg.ResolvedAt))
	if err != nil {
		return fmt.Errorf("inserting suggestion: %w", err)
	}
	sg.ID, err = res.LastInsertId()
	return err
}

func (s *SQLite) GetSuggestion(ctx context.Context, id int64) (*models.AISuggestion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, transaction_id, account_id, description, type, confidence, status, created_at, resolved_at
		FROM ai_suggestions WHERE id = ?`, id)

	var (
		sg             models.AISuggestion
		sgType, status string
		createdAt      string
		resolvedAt     sql.NullString
	)
	if err := row.Scan(&sg.ID, &sg.TransactionID, &sg.AccountID, &sg.Description, &sgType, &sg.Confidence, &status, &createdAt, &resolvedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("suggestion %d not found", id)
		}
		return nil, fmt.Errorf("loading suggestion %d: %w", id, err)
	}
	sg.Type = models.RuleType(sgType)
	sg.Status = models.SuggestionStatus(status)
	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		sg.CreatedAt = t
	}
	sg.ResolvedAt = parseNullTime(resolvedAt)
	return &sg, nil
}

func (s *SQLite) UpdateSuggestion(ctx context.Context, sg *models.AISuggestion) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ai_suggestions SET status = ?, resolved_at = ? WHERE id = ?`,
		string(sg.Status), nullTime(sg.ResolvedAt), sg.ID)
	if err != nil {
		return fmt.Errorf("updating suggestion %d: %w", sg.ID, err)
	}
	return nil
}

func (s *SQLite) AppendLedgerEntries(ctx context.Context, entries []models.LedgerEntry) ([]models.LedgerEntry, error) {
	out := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO ledger_entries (transaction_id, date, amount, account_id, vat_code, type, source)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.TransactionID, dateKey(e.Date), amountKey(e.Amount), e.AccountID, e.VATCode,
			string(e.Type), string(e.Source))
		if err != nil {
			return out, fmt.Errorf("inserting ledger entry: %w", err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *SQLite) LedgerEntriesByTransaction(ctx context.Context, transactionID int64) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, date, amount, account_id, vat_code, type, source
		FROM ledger_entries WHERE transaction_id = ? ORDER BY id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.LedgerEntry
	for rows.Next() {
		var (
			e                 models.LedgerEntry
			date, amount      string
			entryType, source string
		)
		if err := rows.Scan(&e.ID, &e.TransactionID, &date, &amount, &e.AccountID, &e.VATCode, &entryType, &source); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		if e.Date, err = time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("bad date %q on entry %d: %w", date, e.ID, err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount %q on entry %d: %w", amount, e.ID, err)
		}
		e.Type = models.RuleType(entryType)
		e.Source = models.EntrySource(source)
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: dateKey(*t), Valid: true}
}

func parseNullDate(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse("2006-01-02", v.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseNullTime(v sql.NullString) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func fromNullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
