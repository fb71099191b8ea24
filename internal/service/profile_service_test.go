package service

import (
	"context"
	"errors"
	"testing"

	"company-service/internal/events"
	"company-service/internal/models"
	"company-service/internal/util"
)

func newTestProfileService(repo *fakeRepo, publisher *fakePublisher) *ProfileService {
	return NewProfileService(repo, publisher, &fakeIndexer{}, util.Get())
}

func seedCompany(t *testing.T, repo *fakeRepo) *models.Company {
	t.Helper()

	company := &models.Company{
		Email:        "hr@acme.test",
		PasswordHash: "$2a$10$xxxxxxxxxxxxxxxxxxxxxx",
		CompanyName:  "Acme Recruiting",
	}
	if err := repo.CreateCompany(context.Background(), company); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	return company
}

func detailsRequest() *CompanyDetailsRequest {
	return &CompanyDetailsRequest{
		Industry:     "Software",
		Size:         "51-200",
		Website:      "https://acme.test",
		Description:  "We build hiring infrastructure for growing teams.",
		Headquarters: "Berlin, Germany",
		FoundedYear:  2014,
	}
}

func contactRequest() *ContactInfoRequest {
	return &ContactInfoRequest{
		ContactPersonName:  "Dana Reyes",
		ContactPersonTitle: "Head of Talent",
		ContactPersonEmail: "Dana@Acme.Test",
		ContactPersonPhone: "+49301234567",
		City:               "Berlin",
		Country:            "Germany",
	}
}

func TestSubmitCompanyDetailsAdvancesToStepThree(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestProfileService(repo, &fakePublisher{})
	company := seedCompany(t, repo)

	view, err := svc.SubmitCompanyDetails(context.Background(), company.CompanyID, detailsRequest())
	if err != nil {
		t.Fatalf("SubmitCompanyDetails: %v", err)
	}

	if view.Step.CurrentStep != 3 {
		t.Fatalf("step = %d, want 3", view.Step.CurrentStep)
	}
	if !view.Step.CompanyDetailsCompleted {
		t.Fatal("details not marked completed")
	}
	if view.Company.ProfileCompleted {
		t.Fatal("profile completed before contact step")
	}
	if view.Company.Industry != "Software" || view.Company.Size != "51-200" {
		t.Fatalf("details not stored: %+v", view.Company)
	}
}

func TestSubmitContactInfoCompletesProfile(t *testing.T) {
	repo := newFakeRepo()
	publisher := &fakePublisher{}
	svc := newTestProfileService(repo, publisher)
	company := seedCompany(t, repo)

	if _, err := svc.SubmitCompanyDetails(context.Background(), company.CompanyID, detailsRequest()); err != nil {
		t.Fatalf("SubmitCompanyDetails: %v", err)
	}

	view, err := svc.SubmitContactInfo(context.Background(), company.CompanyID, contactRequest())
	if err != nil {
		t.Fatalf("SubmitContactInfo: %v", err)
	}

	if view.Step.CurrentStep != 4 {
		t.Fatalf("step = %d, want 4", view.Step.CurrentStep)
	}
	if !view.Company.ProfileCompleted {
		t.Fatal("profile not completed")
	}
	if view.Company.ContactPersonEmail != "dana@acme.test" {
		t.Fatalf("contact email not normalized: %s", view.Company.ContactPersonEmail)
	}

	types := publisher.typesSeen()
	if len(types) != 1 || types[0] != events.TypeProfileCompleted {
		t.Fatalf("unexpected events: %v", types)
	}

	// The completed profile is now visible to the review queue.
	pending, err := repo.ListPendingCompanies(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPendingCompanies: %v", err)
	}
	if len(pending) != 1 || pending[0].CompanyID != company.CompanyID {
		t.Fatalf("unexpected pending queue: %+v", pending)
	}
}

func TestStepNeverRegresses(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestProfileService(repo, &fakePublisher{})
	company := seedCompany(t, repo)

	if _, err := svc.SubmitCompanyDetails(context.Background(), company.CompanyID, detailsRequest()); err != nil {
		t.Fatalf("SubmitCompanyDetails: %v", err)
	}
	if _, err := svc.SubmitContactInfo(context.Background(), company.CompanyID, contactRequest()); err != nil {
		t.Fatalf("SubmitContactInfo: %v", err)
	}

	// Editing step two again keeps the profile at step four.
	view, err := svc.SubmitCompanyDetails(context.Background(), company.CompanyID, detailsRequest())
	if err != nil {
		t.Fatalf("resubmit details: %v", err)
	}
	if view.Step.CurrentStep != 4 {
		t.Fatalf("step regressed to %d", view.Step.CurrentStep)
	}
}

func TestSubmitDetailsUnknownCompany(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestProfileService(repo, &fakePublisher{})

	if _, err := svc.SubmitCompanyDetails(context.Background(), "missing", detailsRequest()); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("got %v, want ErrCompanyNotFound", err)
	}
}

func TestGetProfileSynthesizesMissingStepRow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestProfileService(repo, &fakePublisher{})
	company := seedCompany(t, repo)

	delete(repo.steps, company.CompanyID)

	view, err := svc.GetProfile(context.Background(), company.CompanyID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if view.Step.CurrentStep != 1 || !view.Step.BasicInfoCompleted {
		t.Fatalf("unexpected synthesized step: %+v", view.Step)
	}
}

func TestGetStepStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestProfileService(repo, &fakePublisher{})
	company := seedCompany(t, repo)
	ctx := context.Background()

	status, err := svc.GetStepStatus(ctx, company.CompanyID)
	if err != nil {
		t.Fatalf("GetStepStatus: %v", err)
	}
	if status.Status != "step_1" {
		t.Fatalf("fresh account status = %s, want step_1", status.Status)
	}

	if _, err := svc.SubmitCompanyDetails(ctx, company.CompanyID, detailsRequest()); err != nil {
		t.Fatalf("SubmitCompanyDetails: %v", err)
	}
	status, err = svc.GetStepStatus(ctx, company.CompanyID)
	if err != nil {
		t.Fatalf("GetStepStatus: %v", err)
	}
	if status.Status != "step_3" {
		t.Fatalf("after details status = %s, want step_3", status.Status)
	}

	if _, err := svc.SubmitContactInfo(ctx, company.CompanyID, contactRequest()); err != nil {
		t.Fatalf("SubmitContactInfo: %v", err)
	}
	status, err = svc.GetStepStatus(ctx, company.CompanyID)
	if err != nil {
		t.Fatalf("GetStepStatus: %v", err)
	}
	if status.Status != "pending_review" {
		t.Fatalf("completed status = %s, want pending_review", status.Status)
	}

	repo.mu.Lock()
	repo.companies[company.CompanyID].IsVerified = true
	repo.mu.Unlock()
	status, err = svc.GetStepStatus(ctx, company.CompanyID)
	if err != nil {
		t.Fatalf("GetStepStatus: %v", err)
	}
	if status.Status != "approved" {
		t.Fatalf("verified status = %s, want approved", status.Status)
	}

	repo.mu.Lock()
	repo.companies[company.CompanyID].IsVerified = false
	repo.companies[company.CompanyID].RejectionReason = "incomplete registration documents"
	repo.mu.Unlock()
	status, err = svc.GetStepStatus(ctx, company.CompanyID)
	if err != nil {
		t.Fatalf("GetStepStatus: %v", err)
	}
	if status.Status != "rejected" {
		t.Fatalf("rejected status = %s, want rejected", status.Status)
	}
	if status.RejectionReason != "incomplete registration documents" {
		t.Fatalf("reason not surfaced: %q", status.RejectionReason)
	}
}
