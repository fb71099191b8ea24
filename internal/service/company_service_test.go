package service

import (
	"context"
	"errors"
	"testing"

	"company-service/internal/events"
	redisrepo "company-service/internal/repository/redis"
	"company-service/internal/util"
)

func init() {
	// Quiet logger for tests
	util.Init("development", "error", "console")
}

func TestRegisterCreatesCompanyAndIssuesTokens(t *testing.T) {
	repo := newFakeRepo()
	publisher := &fakePublisher{}
	svc := newTestCompanyService(t, repo, newFakeNotifier(), publisher)

	result, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       "HR@Acme.Test",
		Password:    "str0ng-password",
		CompanyName: "Acme Recruiting",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if result.Company.CompanyID == "" {
		t.Fatal("expected a company id")
	}
	if result.Company.Email != "hr@acme.test" {
		t.Fatalf("email not normalized: %s", result.Company.Email)
	}
	if result.Company.PasswordHash == "str0ng-password" {
		t.Fatal("password stored in plaintext")
	}
	if result.Tokens == nil || result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}

	types := publisher.typesSeen()
	if len(types) != 1 || types[0] != events.TypeCompanyRegistered {
		t.Fatalf("unexpected events: %v", types)
	}

	step, err := repo.GetProfileStep(context.Background(), result.Company.CompanyID)
	if err != nil {
		t.Fatalf("GetProfileStep: %v", err)
	}
	if step.CurrentStep != 1 || !step.BasicInfoCompleted {
		t.Fatalf("unexpected initial step: %+v", step)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestCompanyService(t, repo, newFakeNotifier(), &fakePublisher{})

	registerTestCompany(t, svc, "hr@acme.test", "str0ng-password")

	_, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       "hr@acme.test",
		Password:    "another-password",
		CompanyName: "Acme Again",
	})
	if !errors.Is(err, ErrCompanyExists) {
		t.Fatalf("duplicate register: got %v, want ErrCompanyExists", err)
	}
}

func TestLogin(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestCompanyService(t, repo, newFakeNotifier(), &fakePublisher{})
	company := registerTestCompany(t, svc, "hr@acme.test", "str0ng-password")

	t.Run("success", func(t *testing.T) {
		result, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "hr@acme.test",
			Password: "str0ng-password",
		})
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if result.Company.CompanyID != company.CompanyID {
			t.Fatalf("wrong company: %s", result.Company.CompanyID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "hr@acme.test",
			Password: "wrong",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		_, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "nobody@acme.test",
			Password: "str0ng-password",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("got %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("blocked", func(t *testing.T) {
		if err := repo.SetBlocked(context.Background(), company.CompanyID, true); err != nil {
			t.Fatalf("SetBlocked: %v", err)
		}
		t.Cleanup(func() { _ = repo.SetBlocked(context.Background(), company.CompanyID, false) })

		_, err := svc.Login(context.Background(), &LoginRequest{
			Email:    "hr@acme.test",
			Password: "str0ng-password",
		})
		if !errors.Is(err, ErrCompanyBlocked) {
			t.Fatalf("got %v, want ErrCompanyBlocked", err)
		}
	})
}

func TestOTPFlow(t *testing.T) {
	repo := newFakeRepo()
	notifier := newFakeNotifier()
	svc := newTestCompanyService(t, repo, notifier, &fakePublisher{})
	ctx := context.Background()

	if err := svc.GenerateOTP(ctx, "New@Acme.Test"); err != nil {
		t.Fatalf("GenerateOTP: %v", err)
	}

	code, ok := notifier.otps["new@acme.test"]
	if !ok {
		t.Fatal("no OTP delivered for normalized email")
	}
	if len(code) != 6 {
		t.Fatalf("code is not 6 digits: %q", code)
	}

	if err := svc.VerifyOTP(ctx, "new@acme.test", code); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	// One-shot: the same code cannot verify twice.
	if err := svc.VerifyOTP(ctx, "new@acme.test", code); !errors.Is(err, redisrepo.ErrOTPNotFound) {
		t.Fatalf("replay: got %v, want ErrOTPNotFound", err)
	}
}

func TestGenerateOTPForRegisteredEmail(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestCompanyService(t, repo, newFakeNotifier(), &fakePublisher{})
	registerTestCompany(t, svc, "hr@acme.test", "str0ng-password")

	if err := svc.GenerateOTP(context.Background(), "hr@acme.test"); !errors.Is(err, ErrCompanyExists) {
		t.Fatalf("got %v, want ErrCompanyExists", err)
	}
}

func TestResendOTPInvalidatesPreviousCode(t *testing.T) {
	repo := newFakeRepo()
	notifier := newFakeNotifier()
	svc := newTestCompanyService(t, repo, notifier, &fakePublisher{})
	ctx := context.Background()

	if err := svc.GenerateOTP(ctx, "new@acme.test"); err != nil {
		t.Fatalf("GenerateOTP: %v", err)
	}
	first := notifier.otps["new@acme.test"]

	if err := svc.ResendOTP(ctx, "new@acme.test"); err != nil {
		t.Fatalf("ResendOTP: %v", err)
	}
	second := notifier.otps["new@acme.test"]

	if first == second {
		// Codes are random; a collision here is a one in 900000 fluke,
		// so treat it as a failure.
		t.Fatalf("resend did not change the code: %s", first)
	}

	if err := svc.VerifyOTP(ctx, "new@acme.test", first); err == nil {
		t.Fatal("stale code accepted after resend")
	}
	if err := svc.VerifyOTP(ctx, "new@acme.test", second); err != nil {
		t.Fatalf("latest code rejected: %v", err)
	}
}

func TestGenerateOTPDeliveryFailureKeepsCode(t *testing.T) {
	repo := newFakeRepo()
	notifier := newFakeNotifier()
	notifier.fail = errBoom
	svc := newTestCompanyService(t, repo, notifier, &fakePublisher{})
	ctx := context.Background()

	err := svc.GenerateOTP(ctx, "new@acme.test")
	if err == nil {
		t.Fatal("expected delivery error")
	}

	// The stored code survives so the flow can recover without a resend.
	ttl, err := svc.otpCache.GetOTPTTL(ctx, "new@acme.test")
	if err != nil {
		t.Fatalf("GetOTPTTL: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("code not stored, ttl=%v", ttl)
	}
}

func TestGenerateOTPIssueThrottle(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestCompanyService(t, repo, newFakeNotifier(), &fakePublisher{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.GenerateOTP(ctx, "new@acme.test"); err != nil {
			t.Fatalf("issue %d: %v", i+1, err)
		}
	}

	if err := svc.GenerateOTP(ctx, "new@acme.test"); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("fourth issue: got %v, want ErrTooManyRequests", err)
	}

	// Other emails are unaffected.
	if err := svc.GenerateOTP(ctx, "other@acme.test"); err != nil {
		t.Fatalf("other email: %v", err)
	}
}

func TestVerifyOTPClearsIssueThrottle(t *testing.T) {
	repo := newFakeRepo()
	notifier := newFakeNotifier()
	svc := newTestCompanyService(t, repo, notifier, &fakePublisher{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.GenerateOTP(ctx, "new@acme.test"); err != nil {
			t.Fatalf("issue %d: %v", i+1, err)
		}
	}
	if err := svc.GenerateOTP(ctx, "new@acme.test"); !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("fourth issue: got %v, want ErrTooManyRequests", err)
	}

	if err := svc.VerifyOTP(ctx, "new@acme.test", notifier.otps["new@acme.test"]); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}

	// A successful verification opens the window again.
	if err := svc.GenerateOTP(ctx, "new@acme.test"); err != nil {
		t.Fatalf("issue after verification: %v", err)
	}
}

func TestRefreshAccessToken(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestCompanyService(t, repo, newFakeNotifier(), &fakePublisher{})
	company := registerTestCompany(t, svc, "hr@acme.test", "str0ng-password")

	result, err := svc.Login(context.Background(), &LoginRequest{
		Email:    "hr@acme.test",
		Password: "str0ng-password",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	access, err := svc.RefreshAccessToken(result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshAccessToken: %v", err)
	}

	claims, err := svc.tokens.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.CompanyID != company.CompanyID {
		t.Fatalf("wrong company in refreshed token: %s", claims.CompanyID)
	}

	if _, err := svc.RefreshAccessToken(result.Tokens.AccessToken); err == nil {
		t.Fatal("access token accepted as refresh token")
	}
}

func TestGetCompany(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestCompanyService(t, repo, newFakeNotifier(), &fakePublisher{})
	company := registerTestCompany(t, svc, "hr@acme.test", "str0ng-password")

	got, err := svc.GetCompany(context.Background(), company.CompanyID)
	if err != nil {
		t.Fatalf("GetCompany: %v", err)
	}
	if got.Email != "hr@acme.test" {
		t.Fatalf("unexpected email: %s", got.Email)
	}

	if _, err := svc.GetCompany(context.Background(), "missing"); !errors.Is(err, ErrCompanyNotFound) {
		t.Fatalf("missing company: got %v, want ErrCompanyNotFound", err)
	}
}

func TestRegisterEventPublishFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	publisher := &fakePublisher{fail: errBoom}
	svc := newTestCompanyService(t, repo, newFakeNotifier(), publisher)

	if _, err := svc.Register(context.Background(), &RegisterRequest{
		Email:       "hr@acme.test",
		Password:    "str0ng-password",
		CompanyName: "Acme Recruiting",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}
