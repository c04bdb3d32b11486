/**
 * @description
 * This file defines the HTTP handlers for the compte service's API endpoints.
 * Handlers are responsible for parsing requests, calling the appropriate
 * service method, and writing the response envelope. Domain error codes map
 * onto HTTP statuses here and nowhere else.
 *
 * @dependencies
 * - Standard Go libraries for HTTP, JSON, etc.
 * - Chi router for URL parameter handling.
 * - The service's internal packages for app logic.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lynx20042010/apiFinance/internal/app"
	"github.com/lynx20042010/apiFinance/internal/domain"
)

// CompteService is the slice of the account service the handlers need.
type CompteService interface {
	CreateAccount(ctx context.Context, input app.CreateAccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, ref string) (*domain.Account, error)
	ListAccounts(ctx context.Context, statut domain.AccountStatus, limit, offset int) ([]domain.Account, error)
	Block(ctx context.Context, ref, motif string, dureeJours int) (*domain.Account, error)
	Unblock(ctx context.Context, ref, motif string) (*domain.Account, error)
	Archive(ctx context.Context, ref, motif string, dureeJours int) (*domain.Account, error)
	Unarchive(ctx context.Context, ref, motif string) (*domain.Account, error)
}

// SweepRunner triggers one archiving sweep tick on demand.
type SweepRunner interface {
	Run(ctx context.Context) (*app.SweepReport, error)
}

// CompteHandler holds the dependencies for compte-related handlers.
type CompteHandler struct {
	service CompteService
	sweeper SweepRunner
}

// NewCompteHandler creates a new CompteHandler.
func NewCompteHandler(service CompteService, sweeper SweepRunner) *CompteHandler {
	return &CompteHandler{service: service, sweeper: sweeper}
}

// CreateCompteRequest defines the expected JSON body for opening an account.
type CreateCompteRequest struct {
	ClientID     string `json:"clientId"`
	Type         string `json:"type"`
	SoldeInitial string `json:"soldeInitial"`
	Devise       string `json:"devise"`
}

// LifecycleRequest defines the JSON body shared by the transition endpoints.
// Only block reads dureeBlocage and only archive reads dureeArchivage.
type LifecycleRequest struct {
	Motif          string `json:"motif"`
	DureeBlocage   int    `json:"dureeBlocage"`
	DureeArchivage int    `json:"dureeArchivage"`
}

// CreateCompte handles the opening of a new account.
func (h *CompteHandler) CreateCompte(w http.ResponseWriter, r *http.Request) {
	var req CreateCompteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, domain.NewValidationError("body", "corps de requête JSON invalide"))
		return
	}

	solde := decimal.Zero
	if req.SoldeInitial != "" {
		parsed, err := decimal.NewFromString(req.SoldeInitial)
		if err != nil {
			respondWithError(w, domain.NewValidationError("soldeInitial", "montant invalide"))
			return
		}
		solde = parsed
	}

	compte, err := h.service.CreateAccount(r.Context(), app.CreateAccountInput{
		ClientID:     req.ClientID,
		Type:         domain.AccountType(req.Type),
		SoldeInitial: solde,
		Devise:       req.Devise,
	})
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithData(w, http.StatusCreated, compte)
}

// GetCompte handles the lookup of a single account by id or numero de compte.
func (h *CompteHandler) GetCompte(w http.ResponseWriter, r *http.Request) {
	compte, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "compteId"))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, compte)
}

// ListComptes handles listing accounts with an optional status filter.
func (h *CompteHandler) ListComptes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	statut := domain.AccountStatus(r.URL.Query().Get("statut"))

	comptes, err := h.service.ListAccounts(r.Context(), statut, limit, offset)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if comptes == nil {
		comptes = []domain.Account{}
	}
	respondWithData(w, http.StatusOK, comptes)
}

// BlockCompte handles the blocking of a savings account.
func (h *CompteHandler) BlockCompte(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	compte, err := h.service.Block(r.Context(), chi.URLParam(r, "compteId"), req.Motif, req.DureeBlocage)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, compte)
}

// UnblockCompte handles the manual lifting of a block.
func (h *CompteHandler) UnblockCompte(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	compte, err := h.service.Unblock(r.Context(), chi.URLParam(r, "compteId"), req.Motif)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, compte)
}

// ArchiveCompte handles the archiving of a closed account.
func (h *CompteHandler) ArchiveCompte(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	compte, err := h.service.Archive(r.Context(), chi.URLParam(r, "compteId"), req.Motif, req.DureeArchivage)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, compte)
}

// UnarchiveCompte handles the manual restoration of an archived account.
func (h *CompteHandler) UnarchiveCompte(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLifecycleRequest(w, r)
	if !ok {
		return
	}

	compte, err := h.service.Unarchive(r.Context(), chi.URLParam(r, "compteId"), req.Motif)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, compte)
}

// RunArchiving triggers one sweep tick and returns its report. Used by
// internal tooling and by operators when a tick needs to run out of schedule.
func (h *CompteHandler) RunArchiving(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Run(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithData(w, http.StatusOK, report)
}

func decodeLifecycleRequest(w http.ResponseWriter, r *http.Request) (LifecycleRequest, bool) {
	var req LifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, domain.NewValidationError("body", "corps de requête JSON invalide"))
		return req, false
	}
	return req, true
}

// statusForCode maps a domain error code to its HTTP status.
func statusForCode(code domain.ErrorCode) int {
	switch code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeValidation, domain.CodeOperationNotAllowed:
		return http.StatusBadRequest
	case domain.CodeAlreadyBlocked, domain.CodeNotBlocked,
		domain.CodeArchiveNotAllowed, domain.CodeUnarchiveNotAllowed,
		domain.CodeStatusConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code    domain.ErrorCode       `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

func respondWithData(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, envelope{Success: true, Data: payload})
}

func respondWithError(w http.ResponseWriter, err error) {
	body := errorBody{Code: domain.CodeOf(err), Message: "erreur interne"}
	var domErr *domain.Error
	if errors.As(err, &domErr) {
		body.Message = domErr.Message
		body.Details = domErr.Details
	}
	respondWithJSON(w, statusForCode(body.Code), envelope{Success: false, Error: &body})
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
