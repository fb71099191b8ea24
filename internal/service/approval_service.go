package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"company-service/internal/audit"
	"company-service/internal/client"
	"company-service/internal/events"
	"company-service/internal/models"
	"company-service/internal/notify"
	"company-service/internal/repository/scylla"
	"company-service/internal/search"
	"company-service/internal/util"
)

const maxRejectionReasonLength = 500

// ApprovalService implements the admin review queue: completed company
// profiles are approved or rejected by a platform admin. The review
// decision is authoritative in the primary store; email, audit, search
// and event fan-out are best effort.
type ApprovalService struct {
	repo      scylla.CompanyRepository
	notifier  notify.Notifier
	publisher events.Publisher
	recorder  audit.Recorder
	indexer   search.Indexer
	jobs      *client.JobsClient
	logger    *zap.Logger
}

// CompanyDetail is the admin view of a single company, augmented with
// the job count fetched from the job service.
type CompanyDetail struct {
	Company  *models.Company
	JobCount int
}

func NewApprovalService(
	repo scylla.CompanyRepository,
	notifier notify.Notifier,
	publisher events.Publisher,
	recorder audit.Recorder,
	indexer search.Indexer,
	jobs *client.JobsClient,
	logger *zap.Logger,
) *ApprovalService {
	return &ApprovalService{
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
		recorder:  recorder,
		indexer:   indexer,
		jobs:      jobs,
		logger:    logger,
	}
}

// ListPending returns completed, unverified, unblocked companies.
// Rejected companies remain in this queue until an admin approves
// them or the account is blocked.
func (s *ApprovalService) ListPending(ctx context.Context, limit int) ([]*models.Company, error) {
	return s.repo.ListPendingCompanies(ctx, limit)
}

// ListAll returns companies for the admin overview.
func (s *ApprovalService) ListAll(ctx context.Context, limit int) ([]*models.Company, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.repo.ListCompanies(ctx, limit)
}

// GetCompanyDetail loads a company and its job count in parallel. The
// job count degrades to zero when the job service is unavailable.
func (s *ApprovalService) GetCompanyDetail(ctx context.Context, companyID string) (*CompanyDetail, error) {
	var (
		company  *models.Company
		jobCount int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		company, err = s.repo.GetCompanyByID(gctx, companyID)
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			return ErrCompanyNotFound
		}
		return err
	})
	g.Go(func() error {
		jobCount = s.jobs.GetCompanyJobCount(gctx, companyID)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &CompanyDetail{Company: company, JobCount: jobCount}, nil
}

// Approve marks a company as verified. Any rejection reason from an
// earlier decision is cleared so the two outcomes can never coexist
// on a record.
func (s *ApprovalService) Approve(ctx context.Context, companyID, reviewedBy string) (*models.Company, error) {
	company, err := s.getReviewable(ctx, companyID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.SetReview(ctx, companyID, true, "", reviewedBy, now); err != nil {
		return nil, err
	}

	company.IsVerified = true
	company.RejectionReason = ""
	company.ReviewedAt = &now
	company.ReviewedBy = reviewedBy

	s.fanOutDecision(ctx, company, "approved", "", reviewedBy, now)

	util.Info("Company approved",
		zap.String("company_id", companyID),
		zap.String("reviewed_by", reviewedBy))

	return company, nil
}

// Reject turns down a company with a mandatory reason. Rejection
// unsets the verified flag even on a previously approved company, and
// the company itself cannot clear the reason; only a later admin
// approval can.
func (s *ApprovalService) Reject(ctx context.Context, companyID, reason, reviewedBy string) (*models.Company, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}
	if len(reason) > maxRejectionReasonLength {
		return nil, fmt.Errorf("%w: rejection reason exceeds %d characters", ErrInvalidInput, maxRejectionReasonLength)
	}

	company, err := s.getReviewable(ctx, companyID)
	if err != nil {
		return nil, err
	}

	reason = util.SanitizeInput(reason)

	now := time.Now().UTC()
	if err := s.repo.SetReview(ctx, companyID, false, reason, reviewedBy, now); err != nil {
		return nil, err
	}

	company.IsVerified = false
	company.RejectionReason = reason
	company.ReviewedAt = &now
	company.ReviewedBy = reviewedBy

	s.fanOutDecision(ctx, company, "rejected", reason, reviewedBy, now)

	util.Info("Company rejected",
		zap.String("company_id", companyID),
		zap.String("reviewed_by", reviewedBy))

	return company, nil
}

// SetBlocked toggles platform access for a company.
func (s *ApprovalService) SetBlocked(ctx context.Context, companyID, actor string, blocked bool) (*models.Company, error) {
	company, err := s.repo.GetCompanyByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	if err := s.repo.SetBlocked(ctx, companyID, blocked); err != nil {
		return nil, err
	}
	company.IsBlocked = blocked

	eventType := events.TypeCompanyBlocked
	if !blocked {
		eventType = events.TypeCompanyUnblocked
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		CompanyID: companyID,
		Actor:     actor,
	}); err != nil {
		util.Warn("Block event publish failed",
			zap.String("company_id", companyID),
			zap.Error(err))
	}
	s.indexer.IndexCompany(ctx, company)

	return company, nil
}

// SearchCompanies serves the admin free-text search.
func (s *ApprovalService) SearchCompanies(ctx context.Context, query string, limit int) ([]search.CompanyDoc, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrInvalidInput)
	}
	return s.indexer.SearchCompanies(ctx, query, limit)
}

// ReviewHistory returns past admin decisions over a company, newest
// first.
func (s *ApprovalService) ReviewHistory(ctx context.Context, companyID string) ([]audit.ReviewRecord, error) {
	if _, err := s.repo.GetCompanyByID(ctx, companyID); err != nil {
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}
	return s.recorder.ReviewHistory(ctx, companyID)
}

// getReviewable loads a company that an admin may decide on. Earlier
// decisions do not lock the record: an approved company can still be
// rejected and a rejected one approved. Only an incomplete profile or
// a blocked account keeps a company out of review.
func (s *ApprovalService) getReviewable(ctx context.Context, companyID string) (*models.Company, error) {
	company, err := s.repo.GetCompanyByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	if !company.ProfileCompleted || company.IsBlocked {
		return nil, ErrCompanyNotPending
	}

	return company, nil
}

func (s *ApprovalService) fanOutDecision(ctx context.Context, company *models.Company, decision, reason, reviewedBy string, reviewedAt time.Time) {
	s.recorder.RecordReview(ctx, audit.ReviewRecord{
		CompanyID:  company.CompanyID,
		Decision:   decision,
		Reason:     reason,
		ReviewedBy: reviewedBy,
		ReviewedAt: reviewedAt,
	})

	eventType := events.TypeCompanyApproved
	if decision == "rejected" {
		eventType = events.TypeCompanyRejected
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		CompanyID: company.CompanyID,
		Email:     company.Email,
		Actor:     reviewedBy,
		Details:   map[string]string{"reason": reason},
	}); err != nil {
		util.Warn("Review event publish failed",
			zap.String("company_id", company.CompanyID),
			zap.Error(err))
	}

	var notifyErr error
	if decision == "approved" {
		notifyErr = s.notifier.SendApproval(company.Email, company.CompanyName)
	} else {
		notifyErr = s.notifier.SendRejection(company.Email, company.CompanyName, reason)
	}
	if notifyErr != nil {
		util.Warn("Review notification failed",
			zap.String("company_id", company.CompanyID),
			zap.String("decision", decision),
			zap.Error(notifyErr))
	}

	s.indexer.IndexCompany(ctx, company)
}
