package token

import (
	"errors"
	"testing"
	"time"

	"company-service/internal/models"
)

func newTestManager(now time.Time) *Manager {
	return &Manager{
		accessSecret:  []byte("access-secret"),
		refreshSecret: []byte("refresh-secret"),
		accessTTL:     2 * time.Hour,
		refreshTTL:    7 * 24 * time.Hour,
		issuer:        "company-service",
		now:           func() time.Time { return now },
	}
}

func testCompany() *models.Company {
	return &models.Company{
		CompanyID: "c-123",
		Email:     "hr@acme.test",
	}
}

func TestIssueAndVerifyAccess(t *testing.T) {
	m := newTestManager(time.Now())

	pair, err := m.Issue(testCompany())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}

	claims, err := m.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.CompanyID != "c-123" || claims.UserID != "c-123" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if claims.Email != "hr@acme.test" {
		t.Fatalf("unexpected email: %s", claims.Email)
	}
	if claims.Role != "company" || claims.UserType != "company" {
		t.Fatalf("unexpected role claims: role=%s userType=%s", claims.Role, claims.UserType)
	}
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	m := newTestManager(time.Now())

	pair, err := m.Issue(testCompany())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("refresh token as access: got %v, want ErrInvalidAccessToken", err)
	}
	if _, err := m.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("access token as refresh: got %v, want ErrInvalidRefreshToken", err)
	}
}

func TestAccessTokenExpiry(t *testing.T) {
	issued := time.Now()
	m := newTestManager(issued)

	pair, err := m.Issue(testCompany())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return issued.Add(2*time.Hour + time.Minute) }

	if _, err := m.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expired access: got %v, want ErrInvalidAccessToken", err)
	}

	// The refresh token outlives the access token.
	if _, err := m.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Fatalf("refresh still valid: %v", err)
	}
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	issued := time.Now()
	m := newTestManager(issued)

	pair, err := m.Issue(testCompany())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return issued.Add(3 * time.Hour) }

	access, err := m.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	claims, err := m.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess on refreshed token: %v", err)
	}
	if claims.CompanyID != "c-123" {
		t.Fatalf("unexpected company id: %s", claims.CompanyID)
	}
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	issued := time.Now()
	m := newTestManager(issued)

	pair, err := m.Issue(testCompany())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m.now = func() time.Time { return issued.Add(8 * 24 * time.Hour) }

	if _, err := m.Refresh(pair.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expired refresh: got %v, want ErrInvalidRefreshToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newTestManager(time.Now())

	if _, err := m.VerifyAccess("not-a-token"); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("garbage token: got %v, want ErrInvalidAccessToken", err)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	now := time.Now()
	other := newTestManager(now)
	other.issuer = "some-other-service"

	pair, err := other.Issue(testCompany())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m := newTestManager(now)
	if _, err := m.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("wrong issuer: got %v, want ErrInvalidAccessToken", err)
	}
}
