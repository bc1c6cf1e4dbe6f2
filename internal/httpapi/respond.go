package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lingocrowd/contribution_control/internal/apperr"
	"github.com/lingocrowd/contribution_control/internal/dto"
	"github.com/lingocrowd/contribution_control/internal/schema"
)

var (
	errEmptyBody   = errors.New("request body is empty")
	errUnknownBody = errors.New("request body contains unexpected data")
)

// decodeJSON decodes the body into dst and validates its tags.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return apperr.Schema(errEmptyBody.Error())
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return apperr.Schema(errEmptyBody.Error())
		default:
			return apperr.Schema("malformed json: %v", err)
		}
	}
	if decoder.More() {
		return apperr.Schema(errUnknownBody.Error())
	}
	return schema.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, dto.ErrorResponse{Error: message})
}

func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch apperr.KindOf(err) {
	case apperr.ErrSchema:
		return http.StatusUnprocessableEntity
	case apperr.ErrConflict, apperr.ErrInvalidTransition:
		return http.StatusConflict
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrStorage:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// handleError writes err with its mapped status. Internal errors are logged
// and never leak their message.
func handleError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, apperr.Schema("invalid %s: must be a uuid", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Schema("invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}
