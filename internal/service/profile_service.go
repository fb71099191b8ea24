package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"company-service/internal/events"
	"company-service/internal/models"
	"company-service/internal/repository/scylla"
	"company-service/internal/search"
	"company-service/internal/util"
)

// ProfileService drives the three-step onboarding flow. Step one is
// registration itself; steps two and three fill in company details and
// contact info. Steps can be resubmitted but progress never regresses.
type ProfileService struct {
	repo      scylla.CompanyRepository
	publisher events.Publisher
	indexer   search.Indexer
	logger    *zap.Logger
}

type CompanyDetailsRequest struct {
	Industry     string `json:"industry" validate:"required,min=2,max=100"`
	Size         string `json:"size" validate:"required,oneof=1-10 11-50 51-200 201-500 501-1000 1000+"`
	Website      string `json:"website" validate:"omitempty,url,max=255"`
	Description  string `json:"description" validate:"required,min=10,max=2000"`
	Headquarters string `json:"headquarters" validate:"required,min=2,max=200"`
	FoundedYear  int    `json:"foundedYear" validate:"omitempty,min=1800,max=2100"`
}

type ContactInfoRequest struct {
	ContactPersonName  string `json:"contactPersonName" validate:"required,min=2,max=100"`
	ContactPersonTitle string `json:"contactPersonTitle" validate:"required,min=2,max=100"`
	ContactPersonEmail string `json:"contactPersonEmail" validate:"required,email"`
	ContactPersonPhone string `json:"contactPersonPhone" validate:"required,min=7,max=20"`
	Phone              string `json:"phone" validate:"omitempty,min=7,max=20"`
	Address            string `json:"address" validate:"omitempty,max=300"`
	City               string `json:"city" validate:"omitempty,max=100"`
	State              string `json:"state" validate:"omitempty,max=100"`
	Country            string `json:"country" validate:"omitempty,max=100"`
}

// ProfileView is the combined company plus onboarding progress.
type ProfileView struct {
	Company *models.Company
	Step    *models.ProfileStep
}

// StepStatus reports where an account stands in onboarding and review.
type StepStatus struct {
	CurrentStep      int    `json:"currentStep"`
	ProfileCompleted bool   `json:"profileCompleted"`
	Status           string `json:"status"`
	RejectionReason  string `json:"rejectionReason,omitempty"`
}

func NewProfileService(
	repo scylla.CompanyRepository,
	publisher events.Publisher,
	indexer search.Indexer,
	logger *zap.Logger,
) *ProfileService {
	return &ProfileService{
		repo:      repo,
		publisher: publisher,
		indexer:   indexer,
		logger:    logger,
	}
}

// SubmitCompanyDetails handles step two of onboarding.
func (s *ProfileService) SubmitCompanyDetails(ctx context.Context, companyID string, req *CompanyDetailsRequest) (*ProfileView, error) {
	company, err := s.getCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	company.Industry = util.SanitizeInput(req.Industry)
	company.Size = req.Size
	company.Website = util.SanitizeInput(req.Website)
	company.Description = util.SanitizeInput(req.Description)
	company.Headquarters = util.SanitizeInput(req.Headquarters)
	company.FoundedYear = req.FoundedYear

	if err := s.repo.UpdateCompanyDetails(ctx, company); err != nil {
		return nil, err
	}

	step, err := s.advanceStep(ctx, companyID, func(step *models.ProfileStep) {
		step.CompanyDetailsCompleted = true
		if step.CurrentStep < 3 {
			step.CurrentStep = 3
		}
	})
	if err != nil {
		return nil, err
	}

	return &ProfileView{Company: company, Step: step}, nil
}

// SubmitContactInfo handles step three and completes the profile,
// placing the company into the admin review queue.
func (s *ProfileService) SubmitContactInfo(ctx context.Context, companyID string, req *ContactInfoRequest) (*ProfileView, error) {
	company, err := s.getCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	company.ContactPersonName = util.SanitizeInput(req.ContactPersonName)
	company.ContactPersonTitle = util.SanitizeInput(req.ContactPersonTitle)
	company.ContactPersonEmail = util.NormalizeEmail(req.ContactPersonEmail)
	company.ContactPersonPhone = util.SanitizeInput(req.ContactPersonPhone)
	company.Phone = util.SanitizeInput(req.Phone)
	company.Address = util.SanitizeInput(req.Address)
	company.City = util.SanitizeInput(req.City)
	company.State = util.SanitizeInput(req.State)
	company.Country = util.SanitizeInput(req.Country)
	company.ProfileCompleted = true

	if err := s.repo.UpdateContactInfo(ctx, company); err != nil {
		return nil, err
	}

	step, err := s.advanceStep(ctx, companyID, func(step *models.ProfileStep) {
		step.ContactInfoCompleted = true
		if step.CurrentStep < 4 {
			step.CurrentStep = 4
		}
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type:      events.TypeProfileCompleted,
		CompanyID: company.CompanyID,
		Email:     company.Email,
	}); err != nil {
		util.Warn("Profile completed event publish failed",
			zap.String("company_id", company.CompanyID),
			zap.Error(err))
	}
	s.indexer.IndexCompany(ctx, company)

	util.Info("Company profile completed", zap.String("company_id", company.CompanyID))

	return &ProfileView{Company: company, Step: step}, nil
}

// GetProfile fetches the company and its step record in parallel.
func (s *ProfileService) GetProfile(ctx context.Context, companyID string) (*ProfileView, error) {
	var (
		company *models.Company
		step    *models.ProfileStep
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		company, err = s.getCompany(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		step, err = s.repo.GetProfileStep(gctx, companyID)
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			// Accounts created before step tracking existed
			step = &models.ProfileStep{CompanyID: companyID, BasicInfoCompleted: true, CurrentStep: 1}
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ProfileView{Company: company, Step: step}, nil
}

// GetStepStatus derives the onboarding position, folding in the
// review outcome once the profile is complete.
func (s *ProfileService) GetStepStatus(ctx context.Context, companyID string) (*StepStatus, error) {
	view, err := s.GetProfile(ctx, companyID)
	if err != nil {
		return nil, err
	}

	status := &StepStatus{
		CurrentStep:      view.Step.CurrentStep,
		ProfileCompleted: view.Company.ProfileCompleted,
	}

	switch {
	case view.Company.IsVerified:
		status.Status = "approved"
	case view.Company.RejectionReason != "":
		status.Status = "rejected"
		status.RejectionReason = view.Company.RejectionReason
	case view.Company.ProfileCompleted:
		status.Status = "pending_review"
	default:
		status.Status = fmt.Sprintf("step_%d", view.Step.CurrentStep)
	}

	return status, nil
}

func (s *ProfileService) getCompany(ctx context.Context, companyID string) (*models.Company, error) {
	company, err := s.repo.GetCompanyByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, scylla.ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("company lookup failed: %w", err)
	}
	return company, nil
}

func (s *ProfileService) advanceStep(ctx context.Context, companyID string, mutate func(*models.ProfileStep)) (*models.ProfileStep, error) {
	step, err := s.repo.GetProfileStep(ctx, companyID)
	if err != nil {
		if !errors.Is(err, scylla.ErrCompanyNotFound) {
			return nil, err
		}
		step = &models.ProfileStep{CompanyID: companyID, BasicInfoCompleted: true, CurrentStep: 1}
	}

	mutate(step)

	if err := s.repo.UpdateProfileStep(ctx, step); err != nil {
		return nil, err
	}

	return step, nil
}
