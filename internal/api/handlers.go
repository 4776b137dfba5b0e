package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"finance-agreements/internal/common/config"
	"finance-agreements/internal/common/errors"
	"finance-agreements/internal/common/logger"
	"finance-agreements/internal/common/middleware"
	"finance-agreements/internal/common/salesforce"
	"finance-agreements/internal/common/validation"
	"finance-agreements/internal/finance"
	"finance-agreements/internal/models"
)

const maxRequestBodyBytes = 1 << 20

type Handler struct {
	app       config.AppConfig
	service   *finance.Service
	logger    logger.Logger
	errors    *errors.ErrorHandler
	readiness []ReadinessChecker
}

// CalculateFinanceAgreement handles POST /api/calculateFinanceAgreement.
func (h *Handler) CalculateFinanceAgreement(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	conn, _ := salesforce.ConnectionFromContext(r.Context())

	resp, err := h.service.CalculateFinanceAgreement(r.Context(), conn, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// decodeRequest reads the body and checks JSON types only.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (*models.FinanceCalculationRequest, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		return nil, errors.NewInvalidRequestBodyError(err.Error())
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.NewInvalidRequestBodyError("required request body is missing")
	}

	result, err := validation.ValidateJSON(validation.FinanceRequestSchema(), body)
	if err != nil {
		return nil, errors.NewInvalidRequestBodyError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidRequestBodyError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var req models.FinanceCalculationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, errors.NewInvalidRequestBodyError(err.Error())
	}
	return &req, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "UP",
		"service": h.app.Name,
		"version": h.app.Version,
	})
}

// Ready pings every readiness dependency and answers 503 if any fails.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.readiness))
	for _, check := range h.readiness {
		if err := check.Ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[check.Name()] = "DOWN"
			h.logger.Warn("Readiness check failed", map[string]interface{}{
				"dependency": check.Name(),
				"error":      err.Error(),
			})
			continue
		}
		checks[check.Name()] = "UP"
	}

	overall := "UP"
	if status != http.StatusOK {
		overall = "DOWN"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

func (h *Handler) APIDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OpenAPIDocument(h.app))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.errors.WriteHTTPError(w, r, middleware.GetRequestID(r.Context()), err)
}

func (h *Handler) rejectClientContext(w http.ResponseWriter, r *http.Request, err error) {
	h.writeError(w, r, errors.NewCRMContextInvalidError(err.Error()))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, &errors.StandardError{
		Code:      errors.ErrCodeNotFound,
		Message:   "No handler for " + r.URL.Path,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, r, &errors.StandardError{
		Code:      errors.ErrCodeMethodNotAllowed,
		Message:   "Method " + r.Method + " not supported",
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
