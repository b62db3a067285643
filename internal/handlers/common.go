package handlers

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"ecopark-admin/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends v as a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// decodeAndValidate reads a JSON body into v and runs its validate tags
func decodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body")
	}
	return validateStruct(v)
}

// decodeOptional is decodeAndValidate for endpoints whose body may be empty
func decodeOptional(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body")
	}
	return validateStruct(v)
}

func validateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

// respondServiceError maps service errors to status codes. Unexpected errors
// are logged and reported as 500 without detail.
func respondServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		respondError(w, "not found", http.StatusNotFound)
	case errors.Is(err, services.ErrInvalidCursor),
		errors.Is(err, services.ErrInvalidSort),
		errors.Is(err, services.ErrInvalidIndex):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrNoImages),
		errors.Is(err, services.ErrLastImage):
		respondError(w, err.Error(), http.StatusConflict)
	default:
		log.Error().Err(err).Msg(msg)
		respondError(w, msg, http.StatusInternalServerError)
	}
}

// finite returns nil for NaN and infinities, which JSON cannot carry
func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
