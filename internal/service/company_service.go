package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"company-service/internal/config"
	"company-service/internal/events"
	"company-service/internal/hashing"
	"company-service/internal/models"
	"company-service/internal/notify"
	redisrepo "company-service/internal/repository/redis"
	"company-service/internal/repository/scylla"
	"company-service/internal/search"
	"company-service/internal/token"
	"company-service/internal/util"
)

// CompanyService handles registration, login and email verification.
type CompanyService struct {
	repo      scylla.CompanyRepository
	otpCache  *redisrepo.OTPCache
	limiter   *redisrepo.RateLimitCache
	hasher    *hashing.Hasher
	tokens    *token.Manager
	notifier  notify.Notifier
	publisher events.Publisher
	indexer   search.Indexer
	otpCfg    config.OTPConfig
	logger    *zap.Logger
}

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	CompanyName string `json:"companyName" validate:"required,min=2,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResult struct {
	Company *models.Company
	Tokens  *token.TokenPair
}

func NewCompanyService(
	repo scylla.CompanyRepository,
	otpCache *redisrepo.OTPCache,
	limiter *redisrepo.RateLimitCache,
	hasher *hashing.Hasher,
	tokens *token.Manager,
	notifier notify.Notifier,
	publisher events.Publisher,
	indexer search.Indexer,
	otpCfg config.OTPConfig,
	logger *zap.Logger,
) *CompanyService {
	return &CompanyService{
		repo:      repo,
		otpCache:  otpCache,
		limiter:   limiter,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		publisher: publisher,
		indexer:   indexer,
		otpCfg:    otpCfg,
		logger:    logger,
	}
}

// Register creates a new company account and signs it in. The email
// must already have passed OTP verification on the client flow.
func (s *CompanyService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	email := util.NormalizeEmail(req.Email)

	registered, err := s.repo.IsEmailRegistered(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("registration lookup failed: %w", err)
	}
	if registered {
		return nil, ErrCompanyExists
	}

	passwordHash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("password hashing failed: %w", err)
	}

	company := &models.Company{
		Email:        email,
		PasswordHash: passwordHash,
		CompanyName:  util.SanitizeInput(req.CompanyName),
	}

	if err := s.repo.CreateCompany(ctx, company); err != nil {
		if errors.Is(err, scylla.ErrEmailTaken) {
			return nil, ErrCompanyExists
		}
		return nil, fmt.Errorf("company creation failed: %w", err)
	}

	pair, err := s.tokens.Issue(company)
	if err != nil {
		return nil, fmt.Errorf("token issue failed: %w", err)
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeCompanyRegistered,
		CompanyID: company.CompanyID,
		Email:     company.Email,
	}); err != nil {
		util.Warn("Registered event publish failed",
			zap.String("company_id", company.CompanyID),
			zap.Error(err))
	}
	s.indexer.IndexCompany(ctx, company)

	util.Info("Company registered",
		zap.String("company_id", company.CompanyID),
		zap.String("email", company.Email))

	return &AuthResult{Company: company, Tokens: pair}, nil
}

// Login authenticates a company by email and password.
func (s *CompanyService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	email := util.NormalizeEmail(req.Email)

	company, err := s.repo.GetCompanyByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			// Same failure as a wrong password so the response does
			// not reveal which emails are registered.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login lookup failed: %w", err)
	}

	if !s.hasher.VerifyPassword(req.Password, company.PasswordHash) {
		util.Warn("Login failed: bad password", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	if company.IsBlocked {
		return nil, ErrCompanyBlocked
	}

	pair, err := s.tokens.Issue(company)
	if err != nil {
		return nil, fmt.Errorf("token issue failed: %w", err)
	}

	util.Info("Company logged in", zap.String("company_id", company.CompanyID))

	return &AuthResult{Company: company, Tokens: pair}, nil
}

// GenerateOTP creates a fresh verification code for an unregistered
// email and delivers it. Any previous code for the email is replaced,
// so only the latest code verifies.
func (s *CompanyService) GenerateOTP(ctx context.Context, email string) error {
	email = util.NormalizeEmail(email)

	registered, err := s.repo.IsEmailRegistered(ctx, email)
	if err != nil {
		return fmt.Errorf("otp lookup failed: %w", err)
	}
	if registered {
		return ErrCompanyExists
	}

	allowed, _, err := s.limiter.Allow(ctx, otpIssueKey(email), s.otpCfg.IssueLimit, s.otpCfg.IssueWindow)
	if err != nil {
		return fmt.Errorf("otp throttle check failed: %w", err)
	}
	if !allowed {
		return ErrTooManyRequests
	}

	code, err := generateOTPCode()
	if err != nil {
		return fmt.Errorf("otp generation failed: %w", err)
	}

	ttl := s.otpCfg.TTL
	if err := s.otpCache.StoreOTP(ctx, email, code, ttl); err != nil {
		return err
	}

	if err := s.notifier.SendOTP(email, code, int(ttl.Minutes())); err != nil {
		// The code stays stored so a resend is not required if the
		// mail was actually delivered despite the error.
		return fmt.Errorf("otp delivery failed: %w", err)
	}

	util.Info("OTP issued", zap.String("email", email))
	return nil
}

// otpIssueKey names the sliding window that throttles code issuance
// for one address.
func otpIssueKey(email string) string {
	return "otp_issue:" + email
}

// VerifyOTP consumes the verification code for email. A matching code
// verifies exactly once. Successful verification also clears the
// issue throttle so the address is not left locked out of a fresh
// code by its own earlier requests.
func (s *CompanyService) VerifyOTP(ctx context.Context, email, code string) error {
	email = util.NormalizeEmail(email)
	if err := s.otpCache.VerifyAndConsume(ctx, email, code); err != nil {
		return err
	}
	if err := s.limiter.Reset(ctx, otpIssueKey(email)); err != nil {
		util.Warn("Failed to reset OTP issue window",
			zap.String("email", email),
			zap.Error(err))
	}
	return nil
}

// ResendOTP issues a new code, invalidating the previous one.
func (s *CompanyService) ResendOTP(ctx context.Context, email string) error {
	return s.GenerateOTP(ctx, email)
}

// RefreshAccessToken exchanges a valid refresh token for a new access
// token. The refresh token itself is left as issued.
func (s *CompanyService) RefreshAccessToken(refreshToken string) (string, error) {
	return s.tokens.Refresh(refreshToken)
}

// ListPublicCompanies returns approved, unblocked companies for the
// public directory.
func (s *CompanyService) ListPublicCompanies(ctx context.Context, limit int) ([]*models.Company, error) {
	if limit <= 0 {
		limit = 100
	}

	companies, err := s.repo.ListCompanies(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("company listing failed: %w", err)
	}

	out := make([]*models.Company, 0, len(companies))
	for _, company := range companies {
		if company.IsVerified && !company.IsBlocked {
			out = append(out, company)
		}
	}
	return out, nil
}

// GetCompany returns the company behind an authenticated session.
func (s *CompanyService) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	company, err := s.repo.GetCompanyByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("company lookup failed: %w", err)
	}
	return company, nil
}

func generateOTPCode() (string, error) {
	// Uniform 6-digit code in [100000, 999999]
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
