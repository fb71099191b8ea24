package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"

	"company-service/internal/audit"
	"company-service/internal/client"
	"company-service/internal/config"
	"company-service/internal/events"
	"company-service/internal/hashing"
	"company-service/internal/models"
	redisrepo "company-service/internal/repository/redis"
	"company-service/internal/repository/scylla"
	"company-service/internal/search"
	"company-service/internal/token"
	"company-service/internal/util"
)

// fakeRepo is an in-memory CompanyRepository for service tests.
type fakeRepo struct {
	mu        sync.Mutex
	companies map[string]*models.Company
	byEmail   map[string]string
	steps     map[string]*models.ProfileStep

	failCreate error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		companies: make(map[string]*models.Company),
		byEmail:   make(map[string]string),
		steps:     make(map[string]*models.ProfileStep),
	}
}

func (r *fakeRepo) CreateCompany(ctx context.Context, company *models.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return r.failCreate
	}
	if _, taken := r.byEmail[company.Email]; taken {
		return scylla.ErrEmailTaken
	}

	if company.CompanyID == "" {
		company.CompanyID = uuid.New().String()
	}
	company.CreatedAt = time.Now().UTC()

	clone := *company
	r.companies[company.CompanyID] = &clone
	r.byEmail[company.Email] = company.CompanyID
	r.steps[company.CompanyID] = &models.ProfileStep{
		CompanyID:          company.CompanyID,
		BasicInfoCompleted: true,
		CurrentStep:        1,
	}
	return nil
}

func (r *fakeRepo) GetCompanyByID(ctx context.Context, companyID string) (*models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	company, ok := r.companies[companyID]
	if !ok {
		return nil, scylla.ErrCompanyNotFound
	}
	clone := *company
	return &clone, nil
}

func (r *fakeRepo) GetCompanyByEmail(ctx context.Context, email string) (*models.Company, error) {
	r.mu.Lock()
	id, ok := r.byEmail[email]
	r.mu.Unlock()
	if !ok {
		return nil, scylla.ErrCompanyNotFound
	}
	return r.GetCompanyByID(ctx, id)
}

func (r *fakeRepo) IsEmailRegistered(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *fakeRepo) UpdateCompanyDetails(ctx context.Context, company *models.Company) error {
	return r.store(company)
}

func (r *fakeRepo) UpdateContactInfo(ctx context.Context, company *models.Company) error {
	return r.store(company)
}

func (r *fakeRepo) store(company *models.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.companies[company.CompanyID]; !ok {
		return scylla.ErrCompanyNotFound
	}
	clone := *company
	r.companies[company.CompanyID] = &clone
	return nil
}

func (r *fakeRepo) GetProfileStep(ctx context.Context, companyID string) (*models.ProfileStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	step, ok := r.steps[companyID]
	if !ok {
		return nil, scylla.ErrCompanyNotFound
	}
	clone := *step
	return &clone, nil
}

func (r *fakeRepo) UpdateProfileStep(ctx context.Context, step *models.ProfileStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *step
	r.steps[step.CompanyID] = &clone
	return nil
}

func (r *fakeRepo) SetBlocked(ctx context.Context, companyID string, blocked bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	company, ok := r.companies[companyID]
	if !ok {
		return scylla.ErrCompanyNotFound
	}
	company.IsBlocked = blocked
	return nil
}

func (r *fakeRepo) SetReview(ctx context.Context, companyID string, verified bool, rejectionReason, reviewedBy string, reviewedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	company, ok := r.companies[companyID]
	if !ok {
		return scylla.ErrCompanyNotFound
	}
	company.IsVerified = verified
	company.RejectionReason = rejectionReason
	company.ReviewedBy = reviewedBy
	company.ReviewedAt = &reviewedAt
	return nil
}

func (r *fakeRepo) ListCompanies(ctx context.Context, limit int) ([]*models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Company, 0, len(r.companies))
	for _, company := range r.companies {
		clone := *company
		out = append(out, &clone)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) ListPendingCompanies(ctx context.Context, limit int) ([]*models.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*models.Company, 0)
	for _, company := range r.companies {
		if company.ProfileCompleted && !company.IsVerified && !company.IsBlocked {
			clone := *company
			out = append(out, &clone)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeRepo) HealthCheck(ctx context.Context) error { return nil }

// fakeNotifier records deliveries and can be told to fail.
type fakeNotifier struct {
	mu         sync.Mutex
	otps       map[string]string
	approvals  []string
	rejections []string
	fail       error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{otps: make(map[string]string)}
}

func (n *fakeNotifier) SendOTP(email, code string, ttlMinutes int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.otps[email] = code
	return nil
}

func (n *fakeNotifier) SendApproval(email, companyName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.approvals = append(n.approvals, email)
	return nil
}

func (n *fakeNotifier) SendRejection(email, companyName, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.rejections = append(n.rejections, email)
	return nil
}

// fakePublisher collects published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	fail   error
}

func (p *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) typesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// fakeIndexer collects indexed companies.
type fakeIndexer struct {
	mu      sync.Mutex
	indexed []string
	docs    []search.CompanyDoc
}

func (i *fakeIndexer) IndexCompany(ctx context.Context, company *models.Company) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, company.CompanyID)
}

func (i *fakeIndexer) SearchCompanies(ctx context.Context, query string, limit int) ([]search.CompanyDoc, error) {
	return i.docs, nil
}

// fakeRecorder collects audit records.
type fakeRecorder struct {
	mu      sync.Mutex
	records []audit.ReviewRecord
}

func (r *fakeRecorder) RecordReview(ctx context.Context, record audit.ReviewRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func (r *fakeRecorder) ReviewHistory(ctx context.Context, companyID string) ([]audit.ReviewRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Newest first, matching the backing store's sort order.
	out := make([]audit.ReviewRecord, 0)
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].CompanyID == companyID {
			out = append(out, r.records[i])
		}
	}
	return out, nil
}

func newTestHasher(t *testing.T) *hashing.Hasher {
	t.Helper()
	h, err := hashing.NewHasher(&config.Config{Hashing: config.HashingConfig{BcryptCost: 10}})
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	return h
}

func newTestTokens() *token.Manager {
	return token.NewManager(&config.Config{JWT: config.JWTConfig{
		AccessSecret:  "test-access",
		RefreshSecret: "test-refresh",
		AccessTTL:     2 * time.Hour,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "company-service",
	}})
}

func newTestOTPCache(t *testing.T) (*redisrepo.OTPCache, *redisrepo.RateLimitCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rc := &client.RedisClient{Client: rdb}
	return redisrepo.NewOTPCache(rc, 5), redisrepo.NewRateLimitCache(rc), mr
}

func newTestCompanyService(t *testing.T, repo *fakeRepo, notifier *fakeNotifier, publisher *fakePublisher) *CompanyService {
	t.Helper()

	otpCache, limiter, _ := newTestOTPCache(t)
	return NewCompanyService(
		repo,
		otpCache,
		limiter,
		newTestHasher(t),
		newTestTokens(),
		notifier,
		publisher,
		&fakeIndexer{},
		config.OTPConfig{
			TTL:         5 * time.Minute,
			MaxAttempts: 5,
			IssueLimit:  3,
			IssueWindow: 15 * time.Minute,
		},
		util.Get(),
	)
}

// registerTestCompany seeds a company through the service so tokens and
// hashes are realistic.
func registerTestCompany(t *testing.T, svc *CompanyService, email, password string) *models.Company {
	t.Helper()

	result, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       email,
		Password:    password,
		CompanyName: "Acme Recruiting",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return result.Company
}

var errBoom = errors.New("boom")
