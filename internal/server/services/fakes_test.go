package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/profiles"
	"github.com/google/uuid"
)

// --- helpers ---

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "test-secret",
		AccessTokenValidityDuration:  5 * time.Minute,
		RefreshTokenValidityDuration: 24 * time.Hour,
		StoreTimeout:                 time.Second,
		BcryptCost:                   4,
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// --- in-memory repositories ---
// The fakes ignore the DBTX they are bound to, so rollbacks are not modeled.

type memAccounts struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]models.Account
	nextPK int64
	locks  int

	createErr error
	getErr    error
	updateErr error
}

func newMemAccounts() *memAccounts {
	return &memAccounts{rows: map[uuid.UUID]models.Account{}}
}

func (m *memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, r := range m.rows {
		if strings.EqualFold(r.Email, a.Email) {
			return nil, fmt.Errorf("%w: accounts_email_key", common.ErrConflict)
		}
	}
	m.nextPK++
	a.PK = m.nextPK
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.rows[a.ID] = *a
	return a, nil
}

func (m *memAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &r, nil
}

func (m *memAccounts) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.Lock()
	m.locks++
	m.mu.Unlock()
	return m.GetByID(ctx, id)
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, r := range m.rows {
		if strings.EqualFold(r.Email, email) {
			return &r, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memAccounts) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if err == common.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *memAccounts) Update(_ context.Context, a *models.Account) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if _, ok := m.rows[a.ID]; !ok {
		return nil, common.ErrNotFound
	}
	for id, r := range m.rows {
		if id != a.ID && strings.EqualFold(r.Email, a.Email) {
			return nil, fmt.Errorf("%w: accounts_email_key", common.ErrConflict)
		}
	}
	a.UpdatedAt = time.Now()
	m.rows[a.ID] = *a
	return a, nil
}

func (m *memAccounts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memProfiles struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]models.Profile
	touched map[uuid.UUID]int

	createErr error
	deleteErr error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{rows: map[uuid.UUID]models.Profile{}, touched: map[uuid.UUID]int{}}
}

func (m *memProfiles) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.rows[p.AccountID] = *p
	return p, nil
}

func (m *memProfiles) GetByAccountID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Update(_ context.Context, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.AccountID]; !ok {
		return nil, common.ErrNotFound
	}
	m.rows[p.AccountID] = *p
	return p, nil
}

func (m *memProfiles) Touch(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return common.ErrNotFound
	}
	m.touched[id]++
	return nil
}

func (m *memProfiles) SetLastSeen(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return common.ErrNotFound
	}
	p.LastSeen = &at
	m.rows[id] = p
	return nil
}

func (m *memProfiles) DeleteByAccountID(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type memBlacklist struct {
	mu   sync.Mutex
	rows map[string]models.BlacklistEntry

	err   error
	block bool
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{rows: map[string]models.BlacklistEntry{}}
}

func (m *memBlacklist) wait(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func (m *memBlacklist) Add(ctx context.Context, e *models.BlacklistEntry) (bool, error) {
	if err := m.wait(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[e.TokenHash]; ok {
		return false, nil
	}
	m.rows[e.TokenHash] = *e
	return true, nil
}

func (m *memBlacklist) Contains(ctx context.Context, hash string) (bool, error) {
	if err := m.wait(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[hash]
	return ok, nil
}

type fakeRepoManager struct {
	accounts  *memAccounts
	profiles  *memProfiles
	blacklist *memBlacklist
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		accounts:  newMemAccounts(),
		profiles:  newMemProfiles(),
		blacklist: newMemBlacklist(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return m.accounts }
func (m *fakeRepoManager) Profiles(dbx.DBTX) profiles.Repository        { return m.profiles }
func (m *fakeRepoManager) Blacklist(dbx.DBTX) blacklist.Repository      { return m.blacklist }

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []any
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, v)
	return nil
}

func (p *recordingPublisher) Close() {}
