package scylla

import (
	"context"
	"time"

	"company-service/internal/models"
)

// CompanyRepository defines the interface for company storage operations
type CompanyRepository interface {
	// Core Operations
	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompanyByID(ctx context.Context, companyID string) (*models.Company, error)
	GetCompanyByEmail(ctx context.Context, email string) (*models.Company, error)
	IsEmailRegistered(ctx context.Context, email string) (bool, error)

	// Profile Operations
	UpdateCompanyDetails(ctx context.Context, company *models.Company) error
	UpdateContactInfo(ctx context.Context, company *models.Company) error
	GetProfileStep(ctx context.Context, companyID string) (*models.ProfileStep, error)
	UpdateProfileStep(ctx context.Context, step *models.ProfileStep) error

	// Administrative Operations
	SetBlocked(ctx context.Context, companyID string, blocked bool) error
	SetReview(ctx context.Context, companyID string, verified bool, rejectionReason, reviewedBy string, reviewedAt time.Time) error
	ListCompanies(ctx context.Context, limit int) ([]*models.Company, error)
	ListPendingCompanies(ctx context.Context, limit int) ([]*models.Company, error)

	// Health
	HealthCheck(ctx context.Context) error
}
