package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avlor/fraudgate/internal/domain"
	"github.com/avlor/fraudgate/internal/usecase"
)

// MockTransaction is a no-op database transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool
	CommitFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(context.Context) error {
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTransactionManager hands out MockTransactions.
type MockTransactionManager struct {
	mu        sync.Mutex
	Began     []*MockTransaction
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &MockTransaction{}
	m.Began = append(m.Began, tx)
	return tx, nil
}

// MockIDGenerator yields sequential ids.
type MockIDGenerator struct {
	mu     sync.Mutex
	Prefix string
	n      int
}

func (m *MockIDGenerator) Generate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	prefix := m.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%04d", prefix, m.n)
}

// MockAccountRepository is an in-memory AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc               func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByNumberFunc          func(ctx context.Context, accountNumber string) (*domain.Account, error)
	GetByNumberForUpdateFunc func(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Account, error)
	UpdateBalancesFunc       func(ctx context.Context, tx usecase.Transaction, accountNumber string, balance, available decimal.Decimal, updatedAt time.Time) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

// Seed installs an account directly, bypassing hooks.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.AccountNumber] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.AccountNumber] = account
	return nil
}

func (m *MockAccountRepository) GetByNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, accountNumber)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[accountNumber]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Account, error) {
	if m.GetByNumberForUpdateFunc != nil {
		return m.GetByNumberForUpdateFunc(ctx, tx, accountNumber)
	}
	return m.GetByNumber(ctx, accountNumber)
}

func (m *MockAccountRepository) GetByNumbersForUpdate(ctx context.Context, tx usecase.Transaction, accountNumbers []string) ([]*domain.Account, error) {
	sorted := append([]string(nil), accountNumbers...)
	sort.Strings(sorted)

	var accounts []*domain.Account
	for _, n := range sorted {
		acc, err := m.GetByNumber(ctx, n)
		if err != nil {
			continue
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

func (m *MockAccountRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, accountNumber string, balance, available decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalancesFunc != nil {
		return m.UpdateBalancesFunc(ctx, tx, accountNumber, balance, available, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountNumber]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.Balance = balance
	acc.AvailableBalance = available
	acc.Version++
	acc.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) RecordSettlement(ctx context.Context, tx usecase.Transaction, accountNumber string, op domain.BalanceOperation, amount decimal.Decimal, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[accountNumber]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.TransactionCount++
	if op == domain.BalanceOperationDebit {
		acc.TotalDebits = acc.TotalDebits.Add(amount)
	} else {
		acc.TotalCredits = acc.TotalCredits.Add(amount)
	}
	acc.LastTransactionAt = &at
	return nil
}

// MockHoldRepository is an in-memory HoldRepository.
type MockHoldRepository struct {
	mu    sync.RWMutex
	holds map[string]*domain.Hold

	CreateFunc       func(ctx context.Context, tx usecase.Transaction, hold *domain.Hold) error
	MarkReleasedFunc func(ctx context.Context, tx usecase.Transaction, id string, releasedAt time.Time) error
}

func NewMockHoldRepository() *MockHoldRepository {
	return &MockHoldRepository{holds: make(map[string]*domain.Hold)}
}

func (m *MockHoldRepository) Create(ctx context.Context, tx usecase.Transaction, hold *domain.Hold) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, hold)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds[hold.ID] = hold
	return nil
}

func (m *MockHoldRepository) GetByID(ctx context.Context, id string) (*domain.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if h, ok := m.holds[id]; ok {
		copied := *h
		return &copied, nil
	}
	return nil, domain.ErrHoldNotFound
}

func (m *MockHoldRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Hold, error) {
	return m.GetByID(ctx, id)
}

func (m *MockHoldRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.holds {
		if h.TransactionID == transactionID {
			copied := *h
			return &copied, nil
		}
	}
	return nil, domain.ErrHoldNotFound
}

func (m *MockHoldRepository) MarkReleased(ctx context.Context, tx usecase.Transaction, id string, releasedAt time.Time) error {
	if m.MarkReleasedFunc != nil {
		return m.MarkReleasedFunc(ctx, tx, id, releasedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[id]
	if !ok {
		return domain.ErrHoldNotFound
	}
	h.Released = true
	h.ReleasedAt = &releasedAt
	h.UpdatedAt = releasedAt
	return nil
}

func (m *MockHoldRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var expired []*domain.Hold
	for _, h := range m.holds {
		if h.Expired(now) {
			copied := *h
			expired = append(expired, &copied)
		}
		if limit > 0 && len(expired) >= limit {
			break
		}
	}
	return expired, nil
}

// Count returns the number of stored holds.
func (m *MockHoldRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.holds)
}

// MockJournalRepository is an in-memory JournalRepository.
type MockJournalRepository struct {
	mu             sync.RWMutex
	entries        map[string]*domain.JournalEntry
	balanceUpdates []*domain.BalanceUpdate

	CreateFunc      func(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error
	WindowStatsFunc func(ctx context.Context, accountNumber string, since time.Time) (int, decimal.Decimal, *time.Time, error)
}

func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{entries: make(map[string]*domain.JournalEntry)}
}

func (m *MockJournalRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.JournalEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[entry.TransactionID]; exists {
		return fmt.Errorf("journal entry %s: duplicate key", entry.TransactionID)
	}
	m.entries[entry.TransactionID] = entry
	return nil
}

func (m *MockJournalRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[transactionID]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockJournalRepository) CreateBalanceUpdate(ctx context.Context, tx usecase.Transaction, update *domain.BalanceUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balanceUpdates = append(m.balanceUpdates, update)
	return nil
}

// BalanceUpdates returns the recorded audit rows.
func (m *MockJournalRepository) BalanceUpdates() []*domain.BalanceUpdate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.BalanceUpdate(nil), m.balanceUpdates...)
}

// EntryCount returns the number of journal entries.
func (m *MockJournalRepository) EntryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MockJournalRepository) WindowStats(ctx context.Context, accountNumber string, since time.Time) (int, decimal.Decimal, *time.Time, error) {
	if m.WindowStatsFunc != nil {
		return m.WindowStatsFunc(ctx, accountNumber, since)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	total := decimal.Zero
	var lastAt *time.Time
	for _, e := range m.entries {
		if e.DebitAccount != accountNumber || e.CreatedAt.Before(since) {
			continue
		}
		count++
		total = total.Add(e.DebitAmount)
		if lastAt == nil || e.CreatedAt.After(*lastAt) {
			at := e.CreatedAt
			lastAt = &at
		}
	}
	return count, total, lastAt, nil
}

func (m *MockJournalRepository) CountByAmountBand(ctx context.Context, accountNumber string, min, max decimal.Decimal, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, e := range m.entries {
		if e.DebitAccount != accountNumber || e.CreatedAt.Before(since) {
			continue
		}
		if e.DebitAmount.GreaterThanOrEqual(min) && e.DebitAmount.LessThanOrEqual(max) {
			count++
		}
	}
	return count, nil
}

func (m *MockJournalRepository) Counterparties(ctx context.Context, accountNumber string, since time.Time, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.entries {
		if e.CreatedAt.Before(since) {
			continue
		}
		var other string
		switch accountNumber {
		case e.DebitAccount:
			other = e.CreditAccount
		case e.CreditAccount:
			other = e.DebitAccount
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MockTransactionRepository is an in-memory TransactionRepository.
type MockTransactionRepository struct {
	mu   sync.RWMutex
	txns map[string]*domain.Transaction

	UpdateStatusFunc func(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{txns: make(map[string]*domain.Transaction)}
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txns[txn.ID] = txn
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.txns[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.Status = status
	t.UpdatedAt = updatedAt
	return nil
}

func (m *MockTransactionRepository) AppendStageEvent(ctx context.Context, id string, event domain.StageEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	t.StageTrail = append(t.StageTrail, event)
	return nil
}

func (m *MockTransactionRepository) AddRiskFlags(ctx context.Context, id string, flags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.txns[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}
	for _, f := range flags {
		t.AddRiskFlag(f)
	}
	return nil
}

func (m *MockTransactionRepository) ListByStatus(ctx context.Context, status domain.TransactionStatus, limit int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range m.txns {
		if t.Status == status {
			copied := *t
			out = append(out, &copied)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MockDecisionRepository is an in-memory DecisionRepository.
type MockDecisionRepository struct {
	mu        sync.RWMutex
	decisions []*domain.Decision

	CreateFunc func(ctx context.Context, tx usecase.Transaction, decision *domain.Decision) error
}

func NewMockDecisionRepository() *MockDecisionRepository {
	return &MockDecisionRepository{}
}

func (m *MockDecisionRepository) Create(ctx context.Context, tx usecase.Transaction, decision *domain.Decision) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, decision)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, decision)
	return nil
}

func (m *MockDecisionRepository) GetByID(ctx context.Context, id string) (*domain.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.decisions {
		if d.ID == id {
			copied := *d
			return &copied, nil
		}
	}
	return nil, domain.ErrDecisionNotFound
}

func (m *MockDecisionRepository) GetLatestByTransactionID(ctx context.Context, transactionID string) (*domain.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.decisions) - 1; i >= 0; i-- {
		if m.decisions[i].TransactionID == transactionID {
			copied := *m.decisions[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrDecisionNotFound
}

func (m *MockDecisionRepository) ListByTransactionID(ctx context.Context, transactionID string) ([]*domain.Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Decision
	for _, d := range m.decisions {
		if d.TransactionID == transactionID {
			copied := *d
			out = append(out, &copied)
		}
	}
	return out, nil
}

// MockReviewRepository is an in-memory ReviewRepository.
type MockReviewRepository struct {
	mu      sync.RWMutex
	reviews map[string]*domain.HumanReview
	signals []*domain.ReviewSignal
}

func NewMockReviewRepository() *MockReviewRepository {
	return &MockReviewRepository{reviews: make(map[string]*domain.HumanReview)}
}

func (m *MockReviewRepository) Create(ctx context.Context, tx usecase.Transaction, review *domain.HumanReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[review.ID] = review
	return nil
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id string) (*domain.HumanReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.reviews[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, domain.ErrReviewNotFound
}

func (m *MockReviewRepository) Resolve(ctx context.Context, tx usecase.Transaction, id, resolvedBy string, resolvedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return domain.ErrReviewNotFound
	}
	r.Status = domain.ReviewStatusResolved
	r.ResolvedBy = resolvedBy
	r.ResolvedAt = &resolvedAt
	return nil
}

func (m *MockReviewRepository) ListPending(ctx context.Context, limit int) ([]*domain.HumanReview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.HumanReview
	for _, r := range m.reviews {
		if r.Status == domain.ReviewStatusPending {
			copied := *r
			out = append(out, &copied)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockReviewRepository) RecordSignal(ctx context.Context, tx usecase.Transaction, signal *domain.ReviewSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, signal)
	return nil
}

func (m *MockReviewRepository) SignalsForWorkflow(ctx context.Context, workflowID string) ([]*domain.ReviewSignal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.ReviewSignal
	for _, s := range m.signals {
		if s.WorkflowID == workflowID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

// MockWorkflowRepository is an in-memory WorkflowRepository.
type MockWorkflowRepository struct {
	mu     sync.RWMutex
	states map[string]*domain.WorkflowExecutionState

	SaveFunc func(ctx context.Context, state *domain.WorkflowExecutionState) error
}

func NewMockWorkflowRepository() *MockWorkflowRepository {
	return &MockWorkflowRepository{states: make(map[string]*domain.WorkflowExecutionState)}
}

func (m *MockWorkflowRepository) Create(ctx context.Context, state *domain.WorkflowExecutionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.states[state.ID] = &copied
	return nil
}

func (m *MockWorkflowRepository) Get(ctx context.Context, id string) (*domain.WorkflowExecutionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.states[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, domain.ErrWorkflowNotFound
}

func (m *MockWorkflowRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.WorkflowExecutionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.states {
		if s.TransactionID == transactionID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, domain.ErrWorkflowNotFound
}

func (m *MockWorkflowRepository) Save(ctx context.Context, state *domain.WorkflowExecutionState) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *state
	m.states[state.ID] = &copied
	return nil
}

func (m *MockWorkflowRepository) ListInFlight(ctx context.Context, limit int) ([]*domain.WorkflowExecutionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.WorkflowExecutionState
	for _, s := range m.states {
		if !s.Stage.Terminal() {
			copied := *s
			out = append(out, &copied)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MockOutboxRepository is an in-memory OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.events[:0]
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// Events returns all recorded events in insertion order.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

// EventTypes returns the recorded event types in insertion order.
func (m *MockOutboxRepository) EventTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, len(m.events))
	for i, e := range m.events {
		types[i] = e.EventType
	}
	return types
}

// MockCache is an in-memory Cache without expiry.
type MockCache struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{items: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[key]; ok {
		return v, nil
	}
	return nil, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}
