/*
Package sqlite provides the SQLite-backed implementation of leave.Store.

PURPOSE:
  Implements the persistence contract for the leave engine using SQLite.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  leave_types:     Per-tenant leave categories, name unique per tenant
  leave_balances:  Materialized balance per (tenant, employee, type)
  balance_entries: Append-only audit trail of every balance mutation
  leave_requests:  Request rows with status lifecycle
  holidays:        Tenant calendar, date unique per tenant
  employees:       Minimal directory records

INVARIANT-CARRYING SQL:
  - Balance row creation is INSERT ... SELECT ... ON CONFLICT DO NOTHING
    against the composite primary key. Idempotent at the database level;
    never check-then-insert.
  - Balance mutation is a single UPDATE ... SET balance = balance + ?.
    The read-modify-write lives in one statement so concurrent adjustments
    serialize on the row instead of losing updates.
  - Status transitions are conditioned on status = 'pending' in the same
    UPDATE; callers inspect rows affected to detect lost races.

CONCURRENCY:
  The pool is capped at a single connection (SetMaxOpenConns(1)) with a
  busy timeout, the standard arrangement for sqlite3: one writer at a
  time, transactions never deadlock on a second pool connection.

TENANCY:
  Every statement filters on tenant_id. Composite primary keys include the
  tenant so identical ids in different tenants cannot collide.

SEE ALSO:
  - leave/store.go: Interface definition and contracts
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/syntaxone/leave-engine/leave"
)

// Store implements leave.Store on a SQLite database.
type Store struct {
	db *sql.DB
	conn
}

// New opens (and migrates) a SQLite store. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: sqlite has one writer anyway, and this keeps a
	// transaction from blocking on a second pool connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, conn: conn{q: db}}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		requires_approval BOOLEAN NOT NULL DEFAULT FALSE,
		default_balance NUMERIC NOT NULL DEFAULT 0,
		accrual_rate NUMERIC NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (tenant_id, id)
	);

	-- Name unique within a tenant, not globally
	CREATE UNIQUE INDEX IF NOT EXISTS idx_leave_types_tenant_name
		ON leave_types(tenant_id, name);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		hire_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (tenant_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_employees_tenant_active
		ON employees(tenant_id, active);

	CREATE TABLE IF NOT EXISTS leave_balances (
		tenant_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		balance NUMERIC NOT NULL DEFAULT 0,
		last_updated TEXT NOT NULL,
		PRIMARY KEY (tenant_id, employee_id, leave_type_id),
		FOREIGN KEY (tenant_id, leave_type_id)
			REFERENCES leave_types(tenant_id, id) ON DELETE RESTRICT,
		FOREIGN KEY (tenant_id, employee_id)
			REFERENCES employees(tenant_id, id) ON DELETE CASCADE
	);

	-- Append-only: no UPDATE, no DELETE, ever. Corrections are new entries.
	CREATE TABLE IF NOT EXISTS balance_entries (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		delta NUMERIC NOT NULL,
		kind TEXT NOT NULL,
		reference_id TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_balance_entries_key
		ON balance_entries(tenant_id, employee_id, leave_type_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL CHECK (end_date >= start_date),
		reason TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		request_date TEXT NOT NULL,
		approver_id TEXT,
		approval_date TEXT,
		comments TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tenant_id, id),
		FOREIGN KEY (tenant_id, leave_type_id)
			REFERENCES leave_types(tenant_id, id) ON DELETE RESTRICT,
		FOREIGN KEY (tenant_id, employee_id)
			REFERENCES employees(tenant_id, id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee
		ON leave_requests(tenant_id, employee_id, request_date DESC);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_status
		ON leave_requests(tenant_id, status);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT NOT NULL,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tenant_id, id)
	);

	-- One holiday per tenant per date
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_tenant_date
		ON holidays(tenant_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn against a transaction-scoped store.
func (s *Store) WithTx(ctx context.Context, fn func(tx leave.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{conn: conn{q: sqlTx}}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore is the transaction-scoped view. Its WithTx joins the surrounding
// transaction instead of opening a nested one.
type txStore struct {
	conn
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx leave.Store) error) error {
	return fn(t)
}

// dbtx is the subset of *sql.DB / *sql.Tx the queries need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn carries every query against either the pool or a transaction.
type conn struct {
	q dbtx
}

// =============================================================================
// TENANTS
// =============================================================================

func (c conn) ListTenants(ctx context.Context) ([]leave.TenantID, error) {
	query := `
		SELECT tenant_id FROM employees
		UNION
		SELECT tenant_id FROM leave_types
		ORDER BY tenant_id
	`
	rows, err := c.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []leave.TenantID
	for rows.Next() {
		var id leave.TenantID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

// =============================================================================
// LEAVE TYPES
// =============================================================================

const typeColumns = `id, tenant_id, name, description, requires_approval,
	default_balance, accrual_rate, created_at, updated_at`

func (c conn) ListTypes(ctx context.Context, tenantID leave.TenantID) ([]leave.LeaveType, error) {
	query := `SELECT ` + typeColumns + ` FROM leave_types WHERE tenant_id = ? ORDER BY name`
	rows, err := c.q.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		lt, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

func (c conn) GetType(ctx context.Context, tenantID leave.TenantID, id leave.LeaveTypeID) (*leave.LeaveType, error) {
	query := `SELECT ` + typeColumns + ` FROM leave_types WHERE tenant_id = ? AND id = ?`
	rows, err := c.q.QueryContext(ctx, query, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get leave type: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	lt, err := scanType(rows)
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func (c conn) InsertType(ctx context.Context, lt leave.LeaveType) error {
	query := `
		INSERT INTO leave_types
		(id, tenant_id, name, description, requires_approval, default_balance, accrual_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := c.q.ExecContext(ctx, query,
		lt.ID, lt.TenantID, lt.Name, lt.Description, lt.RequiresApproval,
		lt.DefaultBalance.String(), lt.AccrualRate.String(),
		lt.CreatedAt.UTC().Format(time.RFC3339), lt.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err, "leave_types") {
			return &leave.ValidationError{Field: "name", Message: "a leave type with this name already exists"}
		}
		return fmt.Errorf("failed to insert leave type: %w", err)
	}
	return nil
}

func (c conn) UpdateType(ctx context.Context, lt leave.LeaveType) (int64, error) {
	query := `
		UPDATE leave_types
		SET name = ?, description = ?, requires_approval = ?,
		    default_balance = ?, accrual_rate = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`
	res, err := c.q.ExecContext(ctx, query,
		lt.Name, lt.Description, lt.RequiresApproval,
		lt.DefaultBalance.String(), lt.AccrualRate.String(),
		lt.UpdatedAt.UTC().Format(time.RFC3339),
		lt.TenantID, lt.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err, "leave_types") {
			return 0, &leave.ValidationError{Field: "name", Message: "a leave type with this name already exists"}
		}
		return 0, fmt.Errorf("failed to update leave type: %w", err)
	}
	return res.RowsAffected()
}

func (c conn) DeleteType(ctx context.Context, tenantID leave.TenantID, id leave.LeaveTypeID) error {
	_, err := c.q.ExecContext(ctx,
		"DELETE FROM leave_types WHERE tenant_id = ? AND id = ?", tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete leave type: %w", err)
	}
	return nil
}

func (c conn) TypeUsage(ctx context.Context, tenantID leave.TenantID, id leave.LeaveTypeID) (int, int, error) {
	var requests, balances int
	err := c.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leave_requests WHERE tenant_id = ? AND leave_type_id = ?",
		tenantID, id).Scan(&requests)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count requests: %w", err)
	}
	err = c.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leave_balances WHERE tenant_id = ? AND leave_type_id = ?",
		tenantID, id).Scan(&balances)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count balances: %w", err)
	}
	return requests, balances, nil
}

func scanType(rows *sql.Rows) (leave.LeaveType, error) {
	var (
		lt                      leave.LeaveType
		defBalance, accrualRate float64
		createdAt, updatedAt    string
	)
	err := rows.Scan(&lt.ID, &lt.TenantID, &lt.Name, &lt.Description, &lt.RequiresApproval,
		&defBalance, &accrualRate, &createdAt, &updatedAt)
	if err != nil {
		return lt, fmt.Errorf("failed to scan leave type: %w", err)
	}
	lt.DefaultBalance = decimal.NewFromFloat(defBalance)
	lt.AccrualRate = decimal.NewFromFloat(accrualRate)
	lt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	lt.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return lt, nil
}

// =============================================================================
// BALANCES
// =============================================================================

// EnsureBalancesForEmployee seeds missing rows for one employee across all
// tenant types. The conflict target is the composite primary key, so the
// statement is idempotent under concurrency.
func (c conn) EnsureBalancesForEmployee(ctx context.Context, tenantID leave.TenantID, employeeID leave.EmployeeID) error {
	query := `
		INSERT INTO leave_balances (tenant_id, employee_id, leave_type_id, balance, last_updated)
		SELECT t.tenant_id, ?, t.id, t.default_balance, ?
		FROM leave_types t
		WHERE t.tenant_id = ?
		ON CONFLICT(tenant_id, employee_id, leave_type_id) DO NOTHING
	`
	_, err := c.q.ExecContext(ctx, query, employeeID, nowRFC3339(), tenantID)
	if err != nil {
		return fmt.Errorf("failed to ensure balance rows: %w", err)
	}
	return nil
}

// EnsureBalancesForType seeds missing rows for one type across all tenant
// employees (the fan-out at type creation).
func (c conn) EnsureBalancesForType(ctx context.Context, tenantID leave.TenantID, typeID leave.LeaveTypeID) error {
	query := `
		INSERT INTO leave_balances (tenant_id, employee_id, leave_type_id, balance, last_updated)
		SELECT e.tenant_id, e.id, t.id, t.default_balance, ?
		FROM employees e
		JOIN leave_types t ON t.tenant_id = e.tenant_id AND t.id = ?
		WHERE e.tenant_id = ?
		ON CONFLICT(tenant_id, employee_id, leave_type_id) DO NOTHING
	`
	_, err := c.q.ExecContext(ctx, query, nowRFC3339(), typeID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to fan out balance rows: %w", err)
	}
	return nil
}

func (c conn) ListBalances(ctx context.Context, tenantID leave.TenantID, employeeID leave.EmployeeID) ([]leave.Balance, error) {
	query := `
		SELECT b.tenant_id, b.employee_id, b.leave_type_id, t.name, b.balance, b.last_updated
		FROM leave_balances b
		JOIN leave_types t ON t.tenant_id = b.tenant_id AND t.id = b.leave_type_id
		WHERE b.tenant_id = ? AND b.employee_id = ?
		ORDER BY t.name
	`
	rows, err := c.q.QueryContext(ctx, query, tenantID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []leave.Balance
	for rows.Next() {
		var (
			b           leave.Balance
			balance     float64
			lastUpdated string
		)
		if err := rows.Scan(&b.TenantID, &b.EmployeeID, &b.LeaveTypeID, &b.TypeName, &balance, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		b.Balance = decimal.NewFromFloat(balance)
		b.LastUpdated, _ = time.Parse(time.RFC3339, lastUpdated)
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (c conn) GetBalance(ctx context.Context, tenantID leave.TenantID, employeeID leave.EmployeeID, typeID leave.LeaveTypeID) (decimal.Decimal, bool, error) {
	var balance float64
	err := c.q.QueryRowContext(ctx,
		`SELECT balance FROM leave_balances
		 WHERE tenant_id = ? AND employee_id = ? AND leave_type_id = ?`,
		tenantID, employeeID, typeID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get balance: %w", err)
	}
	return decimal.NewFromFloat(balance), true, nil
}

// AddToBalance is the single-statement atomic increment. The delta is
// applied in SQL so concurrent adjustments serialize on the row.
func (c conn) AddToBalance(ctx context.Context, tenantID leave.TenantID, employeeID leave.EmployeeID, typeID leave.LeaveTypeID, delta decimal.Decimal) (int64, error) {
	res, err := c.q.ExecContext(ctx,
		`UPDATE leave_balances
		 SET balance = balance + ?, last_updated = ?
		 WHERE tenant_id = ? AND employee_id = ? AND leave_type_id = ?`,
		delta.String(), nowRFC3339(), tenantID, employeeID, typeID)
	if err != nil {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return res.RowsAffected()
}

func (c conn) AppendEntry(ctx context.Context, e leave.Entry) error {
	_, err := c.q.ExecContext(ctx,
		`INSERT INTO balance_entries
		 (id, tenant_id, employee_id, leave_type_id, delta, kind, reference_id, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TenantID, e.EmployeeID, e.LeaveTypeID,
		e.Delta.String(), e.Kind, e.ReferenceID, e.ActorID,
		e.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to append balance entry: %w", err)
	}
	return nil
}

func (c conn) ListEntries(ctx context.Context, tenantID leave.TenantID, employeeID leave.EmployeeID, typeID leave.LeaveTypeID) ([]leave.Entry, error) {
	query := `
		SELECT id, tenant_id, employee_id, leave_type_id, delta, kind, reference_id, actor_id, created_at
		FROM balance_entries
		WHERE tenant_id = ? AND employee_id = ? AND leave_type_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := c.q.QueryContext(ctx, query, tenantID, employeeID, typeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balance entries: %w", err)
	}
	defer rows.Close()

	var entries []leave.Entry
	for rows.Next() {
		var (
			e         leave.Entry
			delta     float64
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.EmployeeID, &e.LeaveTypeID,
			&delta, &e.Kind, &e.ReferenceID, &e.ActorID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance entry: %w", err)
		}
		e.Delta = decimal.NewFromFloat(delta)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, tenant_id, employee_id, leave_type_id, start_date, end_date,
	reason, status, request_date, approver_id, approval_date, comments`

func (c conn) InsertRequest(ctx context.Context, r leave.Request) error {
	query := `
		INSERT INTO leave_requests
		(` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var approverID, approvalDate any
	if r.ApproverID != nil {
		approverID = string(*r.ApproverID)
	}
	if r.ApprovalDate != nil {
		approvalDate = r.ApprovalDate.UTC().Format(time.RFC3339)
	}
	_, err := c.q.ExecContext(ctx, query,
		r.ID, r.TenantID, r.EmployeeID, r.LeaveTypeID,
		r.StartDate.String(), r.EndDate.String(),
		r.Reason, r.Status, r.RequestDate.UTC().Format(time.RFC3339),
		approverID, approvalDate, r.Comments)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

func (c conn) GetRequest(ctx context.Context, tenantID leave.TenantID, id leave.RequestID) (*leave.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM leave_requests WHERE tenant_id = ? AND id = ?`
	rows, err := c.q.QueryContext(ctx, query, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	r, err := scanRequest(rows)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c conn) ListRequestsByEmployee(ctx context.Context, tenantID leave.TenantID, employeeID leave.EmployeeID) ([]leave.Request, error) {
	query := `
		SELECT ` + requestColumns + ` FROM leave_requests
		WHERE tenant_id = ? AND employee_id = ?
		ORDER BY request_date DESC, id
	`
	return c.queryRequests(ctx, query, tenantID, employeeID)
}

func (c conn) ListPendingRequests(ctx context.Context, tenantID leave.TenantID) ([]leave.Request, error) {
	query := `
		SELECT ` + requestColumns + ` FROM leave_requests
		WHERE tenant_id = ? AND status = 'pending'
		ORDER BY request_date ASC, id
	`
	return c.queryRequests(ctx, query, tenantID)
}

// UpdateRequestStatus is the optimistic-concurrency statement: the WHERE
// clause re-checks pending, and rows affected tells the caller whether it
// won the race.
func (c conn) UpdateRequestStatus(ctx context.Context, tenantID leave.TenantID, id leave.RequestID, to leave.RequestStatus, approverID *leave.EmployeeID, approvalAt *time.Time, comments string) (int64, error) {
	var approver, approvedAt any
	if approverID != nil {
		approver = string(*approverID)
	}
	if approvalAt != nil {
		approvedAt = approvalAt.UTC().Format(time.RFC3339)
	}
	res, err := c.q.ExecContext(ctx,
		`UPDATE leave_requests
		 SET status = ?, approver_id = ?, approval_date = ?, comments = ?
		 WHERE tenant_id = ? AND id = ? AND status = 'pending'`,
		to, approver, approvedAt, comments, tenantID, id)
	if err != nil {
		return 0, fmt.Errorf("failed to update request status: %w", err)
	}
	return res.RowsAffected()
}

func (c conn) queryRequests(ctx context.Context, query string, args ...any) ([]leave.Request, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func scanRequest(rows *sql.Rows) (leave.Request, error) {
	var (
		r                      leave.Request
		startDate, endDate     string
		requestDate            string
		approverID, approvalAt sql.NullString
	)
	err := rows.Scan(&r.ID, &r.TenantID, &r.EmployeeID, &r.LeaveTypeID,
		&startDate, &endDate, &r.Reason, &r.Status, &requestDate,
		&approverID, &approvalAt, &r.Comments)
	if err != nil {
		return r, fmt.Errorf("failed to scan request: %w", err)
	}
	r.StartDate, _ = leave.ParseDate(startDate)
	r.EndDate, _ = leave.ParseDate(endDate)
	r.RequestDate, _ = time.Parse(time.RFC3339, requestDate)
	if approverID.Valid {
		id := leave.EmployeeID(approverID.String)
		r.ApproverID = &id
	}
	if approvalAt.Valid {
		t, _ := time.Parse(time.RFC3339, approvalAt.String)
		r.ApprovalDate = &t
	}
	return r, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (c conn) ListHolidays(ctx context.Context, tenantID leave.TenantID) ([]leave.Holiday, error) {
	query := `
		SELECT id, tenant_id, name, date, description
		FROM holidays WHERE tenant_id = ? ORDER BY date
	`
	rows, err := c.q.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

func (c conn) GetHoliday(ctx context.Context, tenantID leave.TenantID, id leave.HolidayID) (*leave.Holiday, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT id, tenant_id, name, date, description FROM holidays WHERE tenant_id = ? AND id = ?",
		tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get holiday: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	h, err := scanHoliday(rows)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (c conn) InsertHoliday(ctx context.Context, h leave.Holiday) error {
	_, err := c.q.ExecContext(ctx,
		"INSERT INTO holidays (id, tenant_id, name, date, description) VALUES (?, ?, ?, ?, ?)",
		h.ID, h.TenantID, h.Name, h.Date.String(), h.Description)
	if err != nil {
		if isUniqueConstraintError(err, "holidays") {
			return &leave.ValidationError{Field: "date", Message: "a holiday already exists on this date"}
		}
		return fmt.Errorf("failed to insert holiday: %w", err)
	}
	return nil
}

func (c conn) DeleteHoliday(ctx context.Context, tenantID leave.TenantID, id leave.HolidayID) error {
	_, err := c.q.ExecContext(ctx,
		"DELETE FROM holidays WHERE tenant_id = ? AND id = ?", tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}

func scanHoliday(rows *sql.Rows) (leave.Holiday, error) {
	var (
		h    leave.Holiday
		date string
	)
	if err := rows.Scan(&h.ID, &h.TenantID, &h.Name, &date, &h.Description); err != nil {
		return h, fmt.Errorf("failed to scan holiday: %w", err)
	}
	h.Date, _ = leave.ParseDate(date)
	return h, nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (c conn) ListEmployees(ctx context.Context, tenantID leave.TenantID) ([]leave.Employee, error) {
	query := `
		SELECT id, tenant_id, name, email, active, hire_date, created_at
		FROM employees WHERE tenant_id = ? ORDER BY name
	`
	return c.queryEmployees(ctx, query, tenantID)
}

func (c conn) ListActiveEmployees(ctx context.Context, tenantID leave.TenantID) ([]leave.Employee, error) {
	query := `
		SELECT id, tenant_id, name, email, active, hire_date, created_at
		FROM employees WHERE tenant_id = ? AND active ORDER BY name
	`
	return c.queryEmployees(ctx, query, tenantID)
}

func (c conn) GetEmployee(ctx context.Context, tenantID leave.TenantID, id leave.EmployeeID) (*leave.Employee, error) {
	rows, err := c.q.QueryContext(ctx,
		`SELECT id, tenant_id, name, email, active, hire_date, created_at
		 FROM employees WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	e, err := scanEmployee(rows)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (c conn) SaveEmployee(ctx context.Context, e leave.Employee) error {
	query := `
		INSERT INTO employees (id, tenant_id, name, email, active, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			active = excluded.active,
			hire_date = excluded.hire_date
	`
	_, err := c.q.ExecContext(ctx, query,
		e.ID, e.TenantID, e.Name, e.Email, e.Active,
		e.HireDate.String(), e.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

func (c conn) queryEmployees(ctx context.Context, query string, args ...any) ([]leave.Employee, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func scanEmployee(rows *sql.Rows) (leave.Employee, error) {
	var (
		e                   leave.Employee
		hireDate, createdAt string
	)
	if err := rows.Scan(&e.ID, &e.TenantID, &e.Name, &e.Email, &e.Active, &hireDate, &createdAt); err != nil {
		return e, fmt.Errorf("failed to scan employee: %w", err)
	}
	e.HireDate, _ = leave.ParseDate(hireDate)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isUniqueConstraintError(err error, table string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, table)
}
