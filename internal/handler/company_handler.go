package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"company-service/internal/config"
	"company-service/internal/models"
	"company-service/internal/service"
	"company-service/internal/token"
	"company-service/internal/util"
)

var validate = validator.New()

// CompanyHandler handles HTTP requests for company accounts
type CompanyHandler struct {
	companyService *service.CompanyService
	profileService *service.ProfileService
	tokens         *token.Manager
	cfg            *config.Config
	logger         *zap.Logger
}

// NewCompanyHandler creates a new company handler
func NewCompanyHandler(
	companyService *service.CompanyService,
	profileService *service.ProfileService,
	tokens *token.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		profileService: profileService,
		tokens:         tokens,
		cfg:            cfg,
		logger:         logger,
	}
}

// companyResponse is the public projection of a company account
type companyResponse struct {
	CompanyID        string     `json:"companyId"`
	Email            string     `json:"email"`
	CompanyName      string     `json:"companyName"`
	Industry         string     `json:"industry,omitempty"`
	Size             string     `json:"size,omitempty"`
	Website          string     `json:"website,omitempty"`
	Description      string     `json:"description,omitempty"`
	Headquarters     string     `json:"headquarters,omitempty"`
	FoundedYear      int        `json:"foundedYear,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Address          string     `json:"address,omitempty"`
	City             string     `json:"city,omitempty"`
	State            string     `json:"state,omitempty"`
	Country          string     `json:"country,omitempty"`
	ContactPerson    string     `json:"contactPersonName,omitempty"`
	ContactTitle     string     `json:"contactPersonTitle,omitempty"`
	ContactEmail     string     `json:"contactPersonEmail,omitempty"`
	ContactPhone     string     `json:"contactPersonPhone,omitempty"`
	IsVerified       bool       `json:"isVerified"`
	IsBlocked        bool       `json:"isBlocked"`
	ProfileCompleted bool       `json:"profileCompleted"`
	RejectionReason  string     `json:"rejectionReason,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func toCompanyResponse(c *models.Company) companyResponse {
	return companyResponse{
		CompanyID:        c.CompanyID,
		Email:            c.Email,
		CompanyName:      c.CompanyName,
		Industry:         c.Industry,
		Size:             c.Size,
		Website:          c.Website,
		Description:      c.Description,
		Headquarters:     c.Headquarters,
		FoundedYear:      c.FoundedYear,
		Phone:            c.Phone,
		Address:          c.Address,
		City:             c.City,
		State:            c.State,
		Country:          c.Country,
		ContactPerson:    c.ContactPersonName,
		ContactTitle:     c.ContactPersonTitle,
		ContactEmail:     c.ContactPersonEmail,
		ContactPhone:     c.ContactPersonPhone,
		IsVerified:       c.IsVerified,
		IsBlocked:        c.IsBlocked,
		ProfileCompleted: c.ProfileCompleted,
		RejectionReason:  c.RejectionReason,
		ReviewedAt:       c.ReviewedAt,
		CreatedAt:        c.CreatedAt,
	}
}

func toCompanyResponses(companies []*models.Company) []companyResponse {
	out := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, toCompanyResponse(c))
	}
	return out
}

// RegisterRoutes registers all company routes
func (h *CompanyHandler) RegisterRoutes(router chi.Router) {
	router.Route("/company", func(r chi.Router) {
		// Public routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/generate-otp", h.GenerateOTP)
		r.Post("/verify-otp", h.VerifyOTP)
		r.Post("/resend-otp", h.ResendOTP)
		r.Post("/refresh-token", h.RefreshToken)
		r.Post("/logout", h.Logout)
		r.Get("/companies", h.ListCompanies)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(AuthGateway(h.tokens))
			r.Use(RequireCompany)

			r.Get("/me", h.Me)
			r.Get("/profile", h.GetProfile)
			r.Get("/profile/step", h.GetProfileStep)
			r.Post("/profile/step2", h.SubmitCompanyDetails)
			r.Post("/profile/step3", h.SubmitContactInfo)
		})
	})
}

// Register handles company account creation
func (h *CompanyHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	result, err := h.companyService.Register(ctx, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to register company")
		return
	}

	h.setAuthCookies(w, result.Tokens)
	respondWithJSON(w, http.StatusCreated, successResponse(toCompanyResponse(result.Company), "Company registered successfully"))
	h.logger.Info("Company registered via HTTP",
		util.String("company_id", result.Company.CompanyID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Register"),
	)
}

// Login handles company sign-in
func (h *CompanyHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	result, err := h.companyService.Login(ctx, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Login failed")
		return
	}

	h.setAuthCookies(w, result.Tokens)
	respondWithJSON(w, http.StatusOK, successResponse(toCompanyResponse(result.Company), "Logged in successfully"))
	h.logger.Info("Company logged in via HTTP",
		util.String("company_id", result.Company.CompanyID),
		util.Duration("duration", time.Since(startTime)),
		util.String("method", "Login"),
	)
}

type otpRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// GenerateOTP issues a verification code to an unregistered email
func (h *CompanyHandler) GenerateOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	if err := h.companyService.GenerateOTP(ctx, req.Email); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to generate OTP")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "OTP sent successfully"))
}

// VerifyOTP consumes a verification code
func (h *CompanyHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	if err := h.companyService.VerifyOTP(ctx, req.Email, req.OTP); err != nil {
		respondWithError(w, getStatusCode(err), err, "OTP verification failed")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Email verified successfully"))
}

// ResendOTP replaces any outstanding code with a fresh one
func (h *CompanyHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	if err := h.companyService.ResendOTP(ctx, req.Email); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to resend OTP")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "OTP resent successfully"))
}

// RefreshToken exchanges the refresh cookie for a new access token
func (h *CompanyHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		respondWithError(w, http.StatusUnauthorized, errors.New("refresh token required"), "Refresh token required")
		return
	}

	accessToken, err := h.companyService.RefreshAccessToken(cookie.Value)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to refresh session")
		return
	}

	h.setCookie(w, accessTokenCookie, accessToken, h.cfg.JWT.AccessTTL)
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Session refreshed"))
}

// Logout clears the auth cookies. The access token is decoded on a
// best-effort basis for the audit log; an invalid token still logs out.
func (h *CompanyHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		if claims, err := h.tokens.VerifyAccess(cookie.Value); err == nil {
			h.logger.Info("Company logged out",
				util.String("company_id", claims.CompanyID),
			)
		}
	}

	h.clearAuthCookies(w)
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out successfully"))
}

// publicCompanyResponse is the directory projection. Contact details
// and review internals stay private.
type publicCompanyResponse struct {
	CompanyID    string `json:"companyId"`
	CompanyName  string `json:"companyName"`
	Industry     string `json:"industry,omitempty"`
	Size         string `json:"size,omitempty"`
	Website      string `json:"website,omitempty"`
	Description  string `json:"description,omitempty"`
	Headquarters string `json:"headquarters,omitempty"`
	FoundedYear  int    `json:"foundedYear,omitempty"`
}

// ListCompanies serves the public company directory
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companies, err := h.companyService.ListPublicCompanies(ctx, parseLimit(r, 100))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list companies")
		return
	}

	out := make([]publicCompanyResponse, 0, len(companies))
	for _, c := range companies {
		out = append(out, publicCompanyResponse{
			CompanyID:    c.CompanyID,
			CompanyName:  c.CompanyName,
			Industry:     c.Industry,
			Size:         c.Size,
			Website:      c.Website,
			Description:  c.Description,
			Headquarters: c.Headquarters,
			FoundedYear:  c.FoundedYear,
		})
	}

	respondWithJSON(w, http.StatusOK, successResponse(out, "Companies retrieved successfully"))
}

// Me returns the authenticated company account
func (h *CompanyHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	company, err := h.companyService.GetCompany(ctx, identity.CompanyID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load account")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(toCompanyResponse(company), "Account retrieved successfully"))
}

// SubmitCompanyDetails handles onboarding step two
func (h *CompanyHandler) SubmitCompanyDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	var req service.CompanyDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	view, err := h.profileService.SubmitCompanyDetails(ctx, identity.CompanyID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to save company details")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"company":     toCompanyResponse(view.Company),
		"currentStep": view.Step.CurrentStep,
	}, "Company details saved"))
}

// SubmitContactInfo handles onboarding step three
func (h *CompanyHandler) SubmitContactInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	var req service.ContactInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Validation failed")
		return
	}

	view, err := h.profileService.SubmitContactInfo(ctx, identity.CompanyID, &req)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to save contact info")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"company":     toCompanyResponse(view.Company),
		"currentStep": view.Step.CurrentStep,
	}, "Profile completed and submitted for review"))
}

// GetProfile returns the company with its onboarding progress
func (h *CompanyHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	view, err := h.profileService.GetProfile(ctx, identity.CompanyID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load profile")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"company": toCompanyResponse(view.Company),
		"steps": map[string]interface{}{
			"basicInfoCompleted":      view.Step.BasicInfoCompleted,
			"companyDetailsCompleted": view.Step.CompanyDetailsCompleted,
			"contactInfoCompleted":    view.Step.ContactInfoCompleted,
			"currentStep":             view.Step.CurrentStep,
		},
	}, "Profile retrieved successfully"))
}

// GetProfileStep reports onboarding position and review status
func (h *CompanyHandler) GetProfileStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	status, err := h.profileService.GetStepStatus(ctx, identity.CompanyID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load profile step")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(status, "Profile step retrieved successfully"))
}

func (h *CompanyHandler) setAuthCookies(w http.ResponseWriter, pair *token.TokenPair) {
	h.setCookie(w, accessTokenCookie, pair.AccessToken, h.cfg.JWT.AccessTTL)
	h.setCookie(w, refreshTokenCookie, pair.RefreshToken, h.cfg.JWT.RefreshTTL)
}

func (h *CompanyHandler) clearAuthCookies(w http.ResponseWriter) {
	h.setCookie(w, accessTokenCookie, "", -time.Hour)
	h.setCookie(w, refreshTokenCookie, "", -time.Hour)
}

func (h *CompanyHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cfg.Cookie.Domain,
		HttpOnly: true,
		Secure:   h.cfg.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	} else {
		cookie.MaxAge = -1
	}
	http.SetCookie(w, cookie)
}
