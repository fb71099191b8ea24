package service

import (
	"go.uber.org/zap"

	"company-service/internal/audit"
	"company-service/internal/client"
	"company-service/internal/config"
	"company-service/internal/events"
	"company-service/internal/hashing"
	"company-service/internal/notify"
	redisrepo "company-service/internal/repository/redis"
	"company-service/internal/repository/scylla"
	"company-service/internal/search"
	"company-service/internal/token"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg       *config.Config
	repo      scylla.CompanyRepository
	otpCache  *redisrepo.OTPCache
	limiter   *redisrepo.RateLimitCache
	hasher    *hashing.Hasher
	tokens    *token.Manager
	notifier  notify.Notifier
	publisher events.Publisher
	recorder  audit.Recorder
	indexer   search.Indexer
	jobs      *client.JobsClient
	logger    *zap.Logger

	companyService  *CompanyService
	profileService  *ProfileService
	approvalService *ApprovalService
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	cfg *config.Config,
	repo scylla.CompanyRepository,
	otpCache *redisrepo.OTPCache,
	limiter *redisrepo.RateLimitCache,
	hasher *hashing.Hasher,
	tokens *token.Manager,
	notifier notify.Notifier,
	publisher events.Publisher,
	recorder audit.Recorder,
	indexer search.Indexer,
	jobs *client.JobsClient,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:       cfg,
		repo:      repo,
		otpCache:  otpCache,
		limiter:   limiter,
		hasher:    hasher,
		tokens:    tokens,
		notifier:  notifier,
		publisher: publisher,
		recorder:  recorder,
		indexer:   indexer,
		jobs:      jobs,
		logger:    logger,
	}
}

// CompanyService returns the company service instance (singleton)
func (f *ServiceFactory) CompanyService() *CompanyService {
	if f.companyService == nil {
		f.companyService = NewCompanyService(
			f.repo,
			f.otpCache,
			f.limiter,
			f.hasher,
			f.tokens,
			f.notifier,
			f.publisher,
			f.indexer,
			f.cfg.OTP,
			f.logger,
		)
	}
	return f.companyService
}

// ProfileService returns the profile service instance (singleton)
func (f *ServiceFactory) ProfileService() *ProfileService {
	if f.profileService == nil {
		f.profileService = NewProfileService(
			f.repo,
			f.publisher,
			f.indexer,
			f.logger,
		)
	}
	return f.profileService
}

// ApprovalService returns the approval service instance (singleton)
func (f *ServiceFactory) ApprovalService() *ApprovalService {
	if f.approvalService == nil {
		f.approvalService = NewApprovalService(
			f.repo,
			f.notifier,
			f.publisher,
			f.recorder,
			f.indexer,
			f.jobs,
			f.logger,
		)
	}
	return f.approvalService
}
