// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/dealdesk/internal/model"
	"github.com/alfredjeanlab/dealdesk/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateDossier(ctx context.Context, d *model.Dossier) error {
	return queryCreateDossier(ctx, s.db, d)
}

func (s *PostgresStore) GetDossier(ctx context.Context, id, viewer string) (*model.Dossier, error) {
	return queryGetDossier(ctx, s.db, id, viewer)
}

func (s *PostgresStore) ListDossiers(ctx context.Context, filter model.DossierFilter) ([]*model.Dossier, int, error) {
	return queryListDossiers(ctx, s.db, filter)
}

func (s *PostgresStore) UpdateDossier(ctx context.Context, d *model.Dossier) error {
	return queryUpdateDossier(ctx, s.db, d)
}

func (s *PostgresStore) UpdateDossierStatus(ctx context.Context, id string, status model.Status) (*model.Dossier, error) {
	return queryUpdateDossierStatus(ctx, s.db, id, status)
}

func (s *PostgresStore) DeleteDossier(ctx context.Context, id string) error {
	return queryDeleteDossier(ctx, s.db, id)
}

func (s *PostgresStore) AddMember(ctx context.Context, m *model.Member) error {
	return queryAddMember(ctx, s.db, m)
}

func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) error {
	return queryCreateCompany(ctx, s.db, c)
}

func (s *PostgresStore) ListCompanies(ctx context.Context) ([]*model.Company, error) {
	return queryListCompanies(ctx, s.db)
}

func (s *PostgresStore) LinkCompany(ctx context.Context, dossierID, companyID string) error {
	return queryLinkCompany(ctx, s.db, dossierID, companyID)
}

func (s *PostgresStore) GetDossierCompanies(ctx context.Context, dossierID string) ([]*model.Company, error) {
	return queryGetDossierCompanies(ctx, s.db, dossierID)
}

func (s *PostgresStore) CreateInteraction(ctx context.Context, i *model.Interaction) error {
	return queryCreateInteraction(ctx, s.db, i)
}

func (s *PostgresStore) ListInteractions(ctx context.Context, dossierID string) ([]*model.Interaction, error) {
	return queryListInteractions(ctx, s.db, dossierID)
}

func (s *PostgresStore) CreateReminder(ctx context.Context, r *model.Reminder) error {
	return queryCreateReminder(ctx, s.db, r)
}

func (s *PostgresStore) ListReminders(ctx context.Context, overdueAt *time.Time) ([]*model.Reminder, error) {
	return queryListReminders(ctx, s.db, overdueAt)
}

func (s *PostgresStore) CompleteReminder(ctx context.Context, id string) (*model.Reminder, error) {
	return queryCompleteReminder(ctx, s.db, id)
}

func (s *PostgresStore) GetStats(ctx context.Context, now time.Time) (*model.DashboardStats, error) {
	return queryGetStats(ctx, s.db, now)
}

func (s *PostgresStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.db, event)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateDossier(ctx context.Context, d *model.Dossier) error {
	return queryCreateDossier(ctx, s.tx, d)
}

func (s *txStore) GetDossier(ctx context.Context, id, viewer string) (*model.Dossier, error) {
	return queryGetDossier(ctx, s.tx, id, viewer)
}

func (s *txStore) ListDossiers(ctx context.Context, filter model.DossierFilter) ([]*model.Dossier, int, error) {
	return queryListDossiers(ctx, s.tx, filter)
}

func (s *txStore) UpdateDossier(ctx context.Context, d *model.Dossier) error {
	return queryUpdateDossier(ctx, s.tx, d)
}

func (s *txStore) UpdateDossierStatus(ctx context.Context, id string, status model.Status) (*model.Dossier, error) {
	return queryUpdateDossierStatus(ctx, s.tx, id, status)
}

func (s *txStore) DeleteDossier(ctx context.Context, id string) error {
	return queryDeleteDossier(ctx, s.tx, id)
}

func (s *txStore) AddMember(ctx context.Context, m *model.Member) error {
	return queryAddMember(ctx, s.tx, m)
}

func (s *txStore) CreateCompany(ctx context.Context, c *model.Company) error {
	return queryCreateCompany(ctx, s.tx, c)
}

func (s *txStore) ListCompanies(ctx context.Context) ([]*model.Company, error) {
	return queryListCompanies(ctx, s.tx)
}

func (s *txStore) LinkCompany(ctx context.Context, dossierID, companyID string) error {
	return queryLinkCompany(ctx, s.tx, dossierID, companyID)
}

func (s *txStore) GetDossierCompanies(ctx context.Context, dossierID string) ([]*model.Company, error) {
	return queryGetDossierCompanies(ctx, s.tx, dossierID)
}

func (s *txStore) CreateInteraction(ctx context.Context, i *model.Interaction) error {
	return queryCreateInteraction(ctx, s.tx, i)
}

func (s *txStore) ListInteractions(ctx context.Context, dossierID string) ([]*model.Interaction, error) {
	return queryListInteractions(ctx, s.tx, dossierID)
}

func (s *txStore) CreateReminder(ctx context.Context, r *model.Reminder) error {
	return queryCreateReminder(ctx, s.tx, r)
}

func (s *txStore) ListReminders(ctx context.Context, overdueAt *time.Time) ([]*model.Reminder, error) {
	return queryListReminders(ctx, s.tx, overdueAt)
}

func (s *txStore) CompleteReminder(ctx context.Context, id string) (*model.Reminder, error) {
	return queryCompleteReminder(ctx, s.tx, id)
}

func (s *txStore) GetStats(ctx context.Context, now time.Time) (*model.DashboardStats, error) {
	return queryGetStats(ctx, s.tx, now)
}

func (s *txStore) RecordEvent(ctx context.Context, event *model.Event) error {
	return queryRecordEvent(ctx, s.tx, event)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
