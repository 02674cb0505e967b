// Package handlers provides HTTP handlers for the REST API
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/omq/mealsync/pkg/errors"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// responder holds the helpers shared by all handler groups
type responder struct {
	validate *validator.Validate
	logger   *zap.Logger
}

func newResponder(logger *zap.Logger) responder {
	return responder{validate: validator.New(), logger: logger}
}

func (h responder) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func (h responder) ok(w http.ResponseWriter, status int, data interface{}, message string) {
	h.writeJSON(w, status, APIResponse{Success: true, Data: data, Message: message})
}

// fail maps err onto the envelope. AppErrors keep their code and status,
// anything else is reported as an internal error.
func (h responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Wrap(err, "")
	}
	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
		)
	}

	detail := errors.ToErrorResponse(appErr, chimiddleware.GetReqID(r.Context())).Error
	h.writeJSON(w, status, APIResponse{Success: false, Error: detail, Message: appErr.Message})
}

// decode reads a JSON body into dst and validates its tags
func (h responder) decode(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewBadRequestError(fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewValidationError(err.Error())
	}
	out := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, errors.ValidationError{
			Field:   strings.ToLower(fe.Field()[:1]) + fe.Field()[1:],
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: fmt.Sprintf("%s failed on the '%s' rule", fe.Field(), fe.Tag()),
		})
	}
	return errors.NewValidationErrors(out)
}
