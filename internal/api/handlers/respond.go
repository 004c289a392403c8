package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithAppError maps an error returned by a service onto its HTTP status.
// Errors without a type are reported as 500 without leaking their text.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		respondWithJSON(w, http.StatusInternalServerError, errorResponse{
			Error: "internal server error",
			Code:  string(apperrors.ErrorTypeInternal),
		})
		return
	}

	status := StatusFor(appErr.Type)
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if appErr.Type == apperrors.ErrorTypeInternal {
			message = "internal server error"
		}
	}
	respondWithJSON(w, status, errorResponse{Error: message, Code: string(appErr.Type)})
}

// StatusFor returns the HTTP status used for an error type
func StatusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeIncompatible:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeInvalidTransition,
		apperrors.ErrorTypeConflict,
		apperrors.ErrorTypeDuplicateProfile:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

// queryBloodType reads a blood type from the query string. A literal "+"
// in an unescaped query arrives as a space, so "AB " is read as "AB+".
func queryBloodType(r *http.Request, key string) (entities.BloodType, bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return "", false, nil
	}
	if strings.HasSuffix(raw, " ") {
		raw = strings.TrimRight(raw, " ") + "+"
	}
	bt, err := entities.ParseBloodType(raw)
	if err != nil {
		return "", true, apperrors.NewValidationError(err.Error())
	}
	return bt, true, nil
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

// ifMatchVersion parses an If-Match header carrying an entity version
// ("3" or W/"3"). It returns 0 when the header is absent.
func ifMatchVersion(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		return 0, nil
	}
	raw = strings.TrimPrefix(raw, "W/")
	v, err := strconv.Atoi(strings.Trim(raw, `"`))
	if err != nil || v <= 0 {
		return 0, apperrors.NewValidationError("If-Match must carry a positive version")
	}
	return v, nil
}
