package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"company-service/internal/service"
	"company-service/internal/token"
	"company-service/internal/util"
)

// AdminHandler handles the admin review and moderation surface
type AdminHandler struct {
	approvalService *service.ApprovalService
	tokens          *token.Manager
	logger          *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(approvalService *service.ApprovalService, tokens *token.Manager, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		approvalService: approvalService,
		tokens:          tokens,
		logger:          logger,
	}
}

// RegisterRoutes registers all admin routes
func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Route("/company/admin", func(r chi.Router) {
		r.Use(AuthGateway(h.tokens))
		r.Use(RequireAdmin)

		r.Get("/pending", h.ListPending)
		r.Get("/all", h.ListAll)
		r.Get("/search", h.Search)
		r.Get("/{companyID}", h.GetCompany)
		r.Get("/{companyID}/audit", h.ReviewHistory)
		r.Post("/{companyID}/approve", h.Approve)
		r.Post("/{companyID}/reject", h.Reject)
		r.Patch("/{companyID}/block", h.Block)
		r.Patch("/{companyID}/unblock", h.Unblock)
	})
}

// ListPending returns companies awaiting review
func (h *AdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companies, err := h.approvalService.ListPending(ctx, parseLimit(r, 100))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list pending companies")
		return
	}

	response := successResponse(toCompanyResponses(companies), "Pending companies retrieved successfully")
	response.Meta = &Meta{Total: len(companies)}
	respondWithJSON(w, http.StatusOK, response)
}

// ListAll returns the full company overview
func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companies, err := h.approvalService.ListAll(ctx, parseLimit(r, 100))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list companies")
		return
	}

	response := successResponse(toCompanyResponses(companies), "Companies retrieved successfully")
	response.Meta = &Meta{Total: len(companies)}
	respondWithJSON(w, http.StatusOK, response)
}

// Search runs a free-text query over the company index
func (h *AdminHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	docs, err := h.approvalService.SearchCompanies(ctx, query, parseLimit(r, 20))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Company search failed")
		return
	}

	response := successResponse(docs, "Search results retrieved successfully")
	response.Meta = &Meta{Total: len(docs)}
	respondWithJSON(w, http.StatusOK, response)
}

// GetCompany returns the admin detail view with the job count
func (h *AdminHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	companyID := chi.URLParam(r, "companyID")
	detail, err := h.approvalService.GetCompanyDetail(ctx, companyID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load company")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(map[string]interface{}{
		"company":  toCompanyResponse(detail.Company),
		"jobCount": detail.JobCount,
	}, "Company retrieved successfully"))
	h.logger.Debug("Admin company detail served",
		util.String("company_id", companyID),
		util.Duration("duration", time.Since(startTime)),
	)
}

type reviewHistoryEntry struct {
	Decision   string    `json:"decision"`
	Reason     string    `json:"reason,omitempty"`
	ReviewedBy string    `json:"reviewedBy"`
	ReviewedAt time.Time `json:"reviewedAt"`
}

// ReviewHistory returns the decision trail for a company
func (h *AdminHandler) ReviewHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID := chi.URLParam(r, "companyID")
	records, err := h.approvalService.ReviewHistory(ctx, companyID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to load review history")
		return
	}

	entries := make([]reviewHistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, reviewHistoryEntry{
			Decision:   rec.Decision,
			Reason:     rec.Reason,
			ReviewedBy: rec.ReviewedBy,
			ReviewedAt: rec.ReviewedAt,
		})
	}

	response := successResponse(entries, "Review history retrieved successfully")
	response.Meta = &Meta{Total: len(entries)}
	respondWithJSON(w, http.StatusOK, response)
}

// Approve marks a pending company as verified
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	companyID := chi.URLParam(r, "companyID")
	company, err := h.approvalService.Approve(ctx, companyID, identity.UserID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to approve company")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(toCompanyResponse(company), "Company approved successfully"))
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

// Reject turns down a pending company with a reason
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	companyID := chi.URLParam(r, "companyID")

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, errors.New("rejection reason is required (max 500 characters)"), "Validation failed")
		return
	}

	company, err := h.approvalService.Reject(ctx, companyID, req.Reason, identity.UserID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to reject company")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(toCompanyResponse(company), "Company rejected"))
}

// Block suspends a company account
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// Unblock restores a suspended company account
func (h *AdminHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *AdminHandler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	ctx := r.Context()
	identity, _ := IdentityFromContext(ctx)

	companyID := chi.URLParam(r, "companyID")
	company, err := h.approvalService.SetBlocked(ctx, companyID, identity.UserID, blocked)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to update company status")
		return
	}

	message := "Company blocked"
	if !blocked {
		message = "Company unblocked"
	}
	respondWithJSON(w, http.StatusOK, successResponse(toCompanyResponse(company), message))
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}
