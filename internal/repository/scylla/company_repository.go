package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"company-service/internal/bucketing"
	"company-service/internal/models"
	"company-service/internal/util"
)

var (
	// ErrCompanyNotFound is returned when a lookup misses both the id
	// and email paths.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrEmailTaken is returned when the email mapping LWT loses to a
	// concurrent registration.
	ErrEmailTaken = errors.New("email already registered")
)

type companyRepository struct {
	client    *ScyllaClient
	bucketing *bucketing.BucketingManager
}

func NewCompanyRepository(client *ScyllaClient, bm *bucketing.BucketingManager, logger *zap.Logger) CompanyRepository {
	return &companyRepository{
		client:    client,
		bucketing: bm,
	}
}

const insertCompanyCQL = `
    INSERT INTO companies (
        company_bucket, company_id, email, password_hash, company_name,
        industry, size, website, description, headquarters, founded_year,
        phone, address, city, state, country,
        contact_person_name, contact_person_title, contact_person_email, contact_person_phone,
        is_verified, is_blocked, profile_completed, rejection_reason,
        reviewed_at, reviewed_by, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertProfileStepCQL = `
    INSERT INTO profile_steps (
        company_id, basic_info_completed, company_details_completed,
        contact_info_completed, current_step, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?)`

func (r *companyRepository) CreateCompany(ctx context.Context, company *models.Company) error {
	if company.CompanyID == "" {
		company.CompanyID = uuid.New().String()
	}
	company.CompanyBucket = r.bucketing.GetCompanyBucket(company.CompanyID)

	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = &now

	// The email mapping is the uniqueness guard: LWT insert first, then
	// the main row. A crash between the two leaves a claimable mapping
	// that GetCompanyByEmail reports as not found.
	applied := make(map[string]interface{})
	emailQuery := r.client.Prepared.CreateEmailToCompany.
		Bind(company.Email, company.CompanyBucket, company.CompanyID, now).
		WithContext(ctx)
	ok, err := emailQuery.MapScanCAS(applied)
	if err != nil {
		util.Error("Failed to reserve company email",
			zap.String("email", company.Email),
			zap.Error(err))
		return fmt.Errorf("failed to reserve company email: %w", err)
	}
	if !ok {
		return ErrEmailTaken
	}

	step := &models.ProfileStep{
		CompanyID:          company.CompanyID,
		BasicInfoCompleted: true,
		CurrentStep:        1,
		CreatedAt:          now,
		UpdatedAt:          &now,
	}

	// The company row and its step-tracking row land atomically: a
	// registered company always has a step row to resume from.
	batch := r.client.Batch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(insertCompanyCQL,
		company.CompanyBucket, company.CompanyID, company.Email, company.PasswordHash, company.CompanyName,
		company.Industry, company.Size, company.Website, company.Description, company.Headquarters, company.FoundedYear,
		company.Phone, company.Address, company.City, company.State, company.Country,
		company.ContactPersonName, company.ContactPersonTitle, company.ContactPersonEmail, company.ContactPersonPhone,
		company.IsVerified, company.IsBlocked, company.ProfileCompleted, company.RejectionReason,
		company.ReviewedAt, company.ReviewedBy, company.CreatedAt, company.UpdatedAt,
	)
	batch.Query(insertProfileStepCQL,
		step.CompanyID, step.BasicInfoCompleted, step.CompanyDetailsCompleted,
		step.ContactInfoCompleted, step.CurrentStep, step.CreatedAt, step.UpdatedAt,
	)
	if err := r.client.ExecuteBatch(batch); err != nil {
		util.Error("Failed to create company",
			zap.String("company_id", company.CompanyID),
			zap.String("email", company.Email),
			zap.Error(err))
		return fmt.Errorf("failed to create company: %w", err)
	}

	util.Info("Company created successfully",
		zap.String("company_id", company.CompanyID),
		zap.String("email", company.Email),
		zap.Int("company_bucket", company.CompanyBucket))

	return nil
}

func (r *companyRepository) GetCompanyByID(ctx context.Context, companyID string) (*models.Company, error) {
	bucket := r.bucketing.GetCompanyBucket(companyID)

	company := &models.Company{}
	query := r.client.Prepared.GetCompanyByID.Bind(bucket, companyID).WithContext(ctx)

	err := r.client.ScanWithRetry(query, companyScanDest(company)...)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrCompanyNotFound
		}
		util.Error("Failed to get company by ID",
			zap.String("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get company by ID: %w", err)
	}

	return company, nil
}

func (r *companyRepository) GetCompanyByEmail(ctx context.Context, email string) (*models.Company, error) {
	var mappedEmail, companyID string
	var bucket int

	query := r.client.Prepared.GetCompanyByEmail.Bind(email).WithContext(ctx)
	err := r.client.ScanWithRetry(query, &mappedEmail, &bucket, &companyID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrCompanyNotFound
		}
		util.Error("Failed to resolve company email",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("failed to resolve company email: %w", err)
	}

	return r.GetCompanyByID(ctx, companyID)
}

func (r *companyRepository) IsEmailRegistered(ctx context.Context, email string) (bool, error) {
	_, err := r.GetCompanyByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *companyRepository) UpdateCompanyDetails(ctx context.Context, company *models.Company) error {
	now := time.Now().UTC()
	company.UpdatedAt = &now
	bucket := r.bucketing.GetCompanyBucket(company.CompanyID)

	query := r.client.Prepared.UpdateCompanyDetails.Bind(
		company.Industry, company.Size, company.Website, company.Description,
		company.Headquarters, company.FoundedYear, now,
		bucket, company.CompanyID,
	).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update company details",
			zap.String("company_id", company.CompanyID),
			zap.Error(err))
		return fmt.Errorf("failed to update company details: %w", err)
	}

	util.Info("Company details updated",
		zap.String("company_id", company.CompanyID),
		zap.String("industry", company.Industry))

	return nil
}

func (r *companyRepository) UpdateContactInfo(ctx context.Context, company *models.Company) error {
	now := time.Now().UTC()
	company.UpdatedAt = &now
	bucket := r.bucketing.GetCompanyBucket(company.CompanyID)

	query := r.client.Prepared.UpdateContactInfo.Bind(
		company.ContactPersonName, company.ContactPersonTitle,
		company.ContactPersonEmail, company.ContactPersonPhone, company.Phone,
		company.Address, company.City, company.State, company.Country,
		company.ProfileCompleted, now,
		bucket, company.CompanyID,
	).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update contact info",
			zap.String("company_id", company.CompanyID),
			zap.Error(err))
		return fmt.Errorf("failed to update contact info: %w", err)
	}

	util.Info("Company contact info updated",
		zap.String("company_id", company.CompanyID),
		zap.Bool("profile_completed", company.ProfileCompleted))

	return nil
}

func (r *companyRepository) GetProfileStep(ctx context.Context, companyID string) (*models.ProfileStep, error) {
	step := &models.ProfileStep{}

	query := r.client.Prepared.GetProfileStep.Bind(companyID).WithContext(ctx)
	err := r.client.ScanWithRetry(query,
		&step.CompanyID, &step.BasicInfoCompleted, &step.CompanyDetailsCompleted,
		&step.ContactInfoCompleted, &step.CurrentStep, &step.CreatedAt, &step.UpdatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrCompanyNotFound
		}
		util.Error("Failed to get profile step",
			zap.String("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get profile step: %w", err)
	}

	return step, nil
}

func (r *companyRepository) UpdateProfileStep(ctx context.Context, step *models.ProfileStep) error {
	now := time.Now().UTC()
	step.UpdatedAt = &now

	query := r.client.Prepared.UpdateProfileStep.Bind(
		step.BasicInfoCompleted, step.CompanyDetailsCompleted,
		step.ContactInfoCompleted, step.CurrentStep, now,
		step.CompanyID,
	).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update profile step",
			zap.String("company_id", step.CompanyID),
			zap.Int("current_step", step.CurrentStep),
			zap.Error(err))
		return fmt.Errorf("failed to update profile step: %w", err)
	}

	return nil
}

func (r *companyRepository) SetBlocked(ctx context.Context, companyID string, blocked bool) error {
	now := time.Now().UTC()
	bucket := r.bucketing.GetCompanyBucket(companyID)

	query := r.client.Prepared.SetBlocked.Bind(blocked, now, bucket, companyID).WithContext(ctx)
	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to update blocked flag",
			zap.String("company_id", companyID),
			zap.Bool("blocked", blocked),
			zap.Error(err))
		return fmt.Errorf("failed to update blocked flag: %w", err)
	}

	util.Info("Company blocked flag updated",
		zap.String("company_id", companyID),
		zap.Bool("blocked", blocked))

	return nil
}

func (r *companyRepository) SetReview(ctx context.Context, companyID string, verified bool, rejectionReason, reviewedBy string, reviewedAt time.Time) error {
	now := time.Now().UTC()
	bucket := r.bucketing.GetCompanyBucket(companyID)

	query := r.client.Prepared.SetReview.Bind(
		verified, rejectionReason, reviewedAt, reviewedBy, now,
		bucket, companyID,
	).WithContext(ctx)

	if err := r.client.ExecuteWithRetry(query, 3); err != nil {
		util.Error("Failed to record review decision",
			zap.String("company_id", companyID),
			zap.Bool("verified", verified),
			zap.Error(err))
		return fmt.Errorf("failed to record review decision: %w", err)
	}

	util.Info("Company review recorded",
		zap.String("company_id", companyID),
		zap.Bool("verified", verified),
		zap.String("reviewed_by", reviewedBy))

	return nil
}

// ListCompanies scans all buckets. Admin listings are rare and the
// table is small relative to per-bucket partitions, so a full scan
// with ALLOW FILTERING is acceptable here.
func (r *companyRepository) ListCompanies(ctx context.Context, limit int) ([]*models.Company, error) {
	return r.scanCompanies(ctx, `SELECT company_bucket, company_id, email, password_hash, company_name,
            industry, size, website, description, headquarters, founded_year,
            phone, address, city, state, country,
            contact_person_name, contact_person_title, contact_person_email, contact_person_phone,
            is_verified, is_blocked, profile_completed, rejection_reason,
            reviewed_at, reviewed_by, created_at, updated_at
        FROM companies LIMIT ?`, limit)
}

func (r *companyRepository) ListPendingCompanies(ctx context.Context, limit int) ([]*models.Company, error) {
	companies, err := r.scanCompanies(ctx, `SELECT company_bucket, company_id, email, password_hash, company_name,
            industry, size, website, description, headquarters, founded_year,
            phone, address, city, state, country,
            contact_person_name, contact_person_title, contact_person_email, contact_person_phone,
            is_verified, is_blocked, profile_completed, rejection_reason,
            reviewed_at, reviewed_by, created_at, updated_at
        FROM companies WHERE profile_completed = true AND is_verified = false ALLOW FILTERING`, 0)
	if err != nil {
		return nil, err
	}

	// Blocked companies are excluded from the review queue client-side:
	// a second inequality predicate is not expressible in CQL.
	pending := make([]*models.Company, 0, len(companies))
	for _, c := range companies {
		if c.IsBlocked {
			continue
		}
		pending = append(pending, c)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}

	return pending, nil
}

func (r *companyRepository) scanCompanies(ctx context.Context, stmt string, limit int) ([]*models.Company, error) {
	var query *gocql.Query
	if limit > 0 {
		query = r.client.Query(stmt, limit)
	} else {
		query = r.client.Query(stmt)
	}

	iter := query.WithContext(ctx).Iter()

	var companies []*models.Company
	for {
		company := &models.Company{}
		if !iter.Scan(companyScanDest(company)...) {
			break
		}
		companies = append(companies, company)
	}

	if err := iter.Close(); err != nil {
		util.Error("Failed to list companies", zap.Error(err))
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	return companies, nil
}

func (r *companyRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck()
}

func companyScanDest(c *models.Company) []interface{} {
	return []interface{}{
		&c.CompanyBucket, &c.CompanyID, &c.Email, &c.PasswordHash, &c.CompanyName,
		&c.Industry, &c.Size, &c.Website, &c.Description, &c.Headquarters, &c.FoundedYear,
		&c.Phone, &c.Address, &c.City, &c.State, &c.Country,
		&c.ContactPersonName, &c.ContactPersonTitle, &c.ContactPersonEmail, &c.ContactPersonPhone,
		&c.IsVerified, &c.IsBlocked, &c.ProfileCompleted, &c.RejectionReason,
		&c.ReviewedAt, &c.ReviewedBy, &c.CreatedAt, &c.UpdatedAt,
	}
}
