package service

import (
	"context"
	"sync"
	"time"

	"github.com/keyword-alchemist-service/internal/gemini"
	"github.com/keyword-alchemist-service/internal/model"
	"github.com/keyword-alchemist-service/internal/store"
)

// fakeStore is an in-memory store.Store for service tests. Error fields
// force failures on a per-method basis.
type fakeStore struct {
	mu       sync.Mutex
	keys     map[string]*model.AccessKey
	payments map[string]*model.PaymentRecord
	usage    []*model.UsageRecord
	attempts []*model.KeywordAttempt

	existsErr       error
	getErr          error
	debitErr        error
	createFundedErr error

	// existsHook, when set, answers AccessKeyExists instead of the map.
	existsHook func(key string) bool

	existsCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		keys:     make(map[string]*model.AccessKey),
		payments: make(map[string]*model.PaymentRecord),
	}
}

func (f *fakeStore) addKey(key string, plan model.Plan, total, used int, status model.AccessKeyStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = &model.AccessKey{
		Key:          key,
		Plan:         plan,
		CreditsTotal: total,
		CreditsUsed:  used,
		Status:       status,
		CreatedAt:    time.Now(),
	}
}

func (f *fakeStore) CreateAccessKey(_ context.Context, key *model.AccessKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.keys[key.Key]; ok {
		return store.ErrDuplicateKey
	}
	cp := *key
	f.keys[key.Key] = &cp
	return nil
}

func (f *fakeStore) GetActiveAccessKey(_ context.Context, key string) (*model.AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	k, ok := f.keys[key]
	if !ok || k.Status != model.StatusActive {
		return nil, store.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

func (f *fakeStore) AccessKeyExists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.existsCalls++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if f.existsHook != nil {
		return f.existsHook(key), nil
	}
	_, ok := f.keys[key]
	return ok, nil
}

func (f *fakeStore) DebitCredits(_ context.Context, key string, amount int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.debitErr != nil {
		return 0, f.debitErr
	}
	k, ok := f.keys[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	k.CreditsUsed += amount
	return k.CreditsUsed, nil
}

func (f *fakeStore) ListAccessKeys(_ context.Context, page, perPage int) ([]*model.AccessKey, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.AccessKey, 0, len(f.keys))
	for _, k := range f.keys {
		cp := *k
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) CountAccessKeys(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys), nil
}

func (f *fakeStore) UpdateAccessKeyStatus(_ context.Context, key string, status model.AccessKeyStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k, ok := f.keys[key]
	if !ok {
		return store.ErrNotFound
	}
	k.Status = status
	return nil
}

func (f *fakeStore) DeleteAllAccessKeys(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = make(map[string]*model.AccessKey)
	return nil
}

func (f *fakeStore) AppendUsage(_ context.Context, rec *model.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.usage = append(f.usage, &cp)
	return nil
}

func (f *fakeStore) AppendKeywordAttempt(_ context.Context, attempt *model.KeywordAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *attempt
	f.attempts = append(f.attempts, &cp)
	return nil
}

func (f *fakeStore) ClearAnalytics(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = nil
	f.attempts = nil
	return nil
}

func (f *fakeStore) AnalyticsSummary(_ context.Context) (*store.AnalyticsSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &store.AnalyticsSummary{
		TotalKeys:     len(f.keys),
		TotalRequests: len(f.usage),
		TotalAttempts: len(f.attempts),
	}, nil
}

func (f *fakeStore) CreatePaymentLog(_ context.Context, rec *model.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.payments[rec.SessionID]; ok {
		return store.ErrDuplicateSession
	}
	cp := *rec
	cp.CreatedAt = time.Now()
	f.payments[rec.SessionID] = &cp
	return nil
}

func (f *fakeStore) GetPaymentBySessionID(_ context.Context, sessionID string) (*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.payments[sessionID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) CreateFundedAccessKey(_ context.Context, key *model.AccessKey, rec *model.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFundedErr != nil {
		return f.createFundedErr
	}
	if _, ok := f.payments[rec.SessionID]; ok {
		return store.ErrDuplicateSession
	}
	if _, ok := f.keys[key.Key]; ok {
		return store.ErrDuplicateKey
	}
	kcp := *key
	if kcp.Status == "" {
		kcp.Status = model.StatusActive
	}
	f.keys[key.Key] = &kcp
	rcp := *rec
	rcp.CreatedAt = time.Now()
	f.payments[rec.SessionID] = &rcp
	return nil
}

func (f *fakeStore) ListRecentPayments(_ context.Context, since time.Time, limit int) ([]*model.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.PaymentRecord, 0, len(f.payments))
	for _, p := range f.payments {
		if p.CreatedAt.Before(since) {
			continue
		}
		cp := *p
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// fakeGenerator answers GenerateBlogPost with the configured function.
type fakeGenerator struct {
	fn func(ctx context.Context, keyword string) (*gemini.BlogPost, error)
}

func (g *fakeGenerator) GenerateBlogPost(ctx context.Context, keyword string) (*gemini.BlogPost, error) {
	return g.fn(ctx, keyword)
}
