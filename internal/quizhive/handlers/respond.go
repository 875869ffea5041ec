// Package handlers exposes the service layer as a thin HTTP JSON surface.
// Routing stays deliberately framework-free; everything interesting happens
// in the service packages.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/models"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, e.ErrUnauthenticated), errors.Is(err, e.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, e.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, e.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, e.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Never leak internals.
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}

// writeMembershipError reports duplicate membership rows as 208: an already
// existing invitation or request is expected, not exceptional.
func writeMembershipError(w http.ResponseWriter, err error) {
	if errors.Is(err, e.ErrConflict) {
		writeJSON(w, http.StatusAlreadyReported, errorResponse{Error: err.Error()})
		return
	}
	writeError(w, err)
}

func pathUint(r *http.Request, name string) (uint, error) {
	v, err := strconv.ParseUint(r.PathValue(name), 10, 32)
	if err != nil {
		return 0, e.ErrInvalidInput
	}
	return uint(v), nil
}

func pageFrom(r *http.Request) models.Page {
	page := models.Page{Limit: 5}
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil && v >= 0 {
		page.Skip = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		page.Limit = v
	}
	return page
}

func statusFrom(r *http.Request) models.TrackStatus {
	switch models.TrackStatus(r.URL.Query().Get("status")) {
	case models.StatusAccept:
		return models.StatusAccept
	case models.StatusReject:
		return models.StatusReject
	default:
		return models.StatusPending
	}
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return e.ErrInvalidInput
	}
	return nil
}

type listResponse struct {
	Data interface{} `json:"data"`
	models.PageInfo
}
