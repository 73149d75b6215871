package handlers

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/academy_portal/internal/service"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

// Коды ошибок в ответах API
const (
	CodeNotFound          = "NOT_FOUND"
	CodeSlotUnavailable   = "SLOT_UNAVAILABLE"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeTokenAlreadyUsed  = "TOKEN_ALREADY_USED"
	CodeDependencyFailure = "DEPENDENCY_FAILURE"
	CodeStorageFailure    = "STORAGE_FAILURE"
	CodeBadRequest        = "BAD_REQUEST"
	CodeInternal          = "INTERNAL"
)

type errorResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error"`
	Code    string               `json:"code"`
	Fields  []service.FieldError `json:"fields,omitempty"`
}

type errorMapping struct {
	status int
	code   string
	// public=false: наружу уходит общее сообщение
	public bool
}

var errorMappings = map[error]errorMapping{
	service.ErrNotFound:          {http.StatusNotFound, CodeNotFound, true},
	service.ErrSlotUnavailable:   {http.StatusConflict, CodeSlotUnavailable, true},
	service.ErrValidationFailed:  {http.StatusUnprocessableEntity, CodeValidationFailed, true},
	service.ErrInvalidToken:      {http.StatusNotFound, CodeInvalidToken, true},
	service.ErrTokenExpired:      {http.StatusGone, CodeTokenExpired, true},
	service.ErrTokenAlreadyUsed:  {http.StatusConflict, CodeTokenAlreadyUsed, true},
	service.ErrDependencyFailure: {http.StatusBadGateway, CodeDependencyFailure, false},
	service.ErrStorageFailure:    {http.StatusInternalServerError, CodeStorageFailure, false},
}

// ok отвечает {"success": true, ...data}
func ok(w http.ResponseWriter, r *http.Request, status int, data map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range data {
		body[k] = v
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Error: msg, Code: CodeBadRequest})
}

// fail переводит ошибку сервиса в HTTP-ответ
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	mapping, known := errorMappings[service.Kind(err)]
	if !known {
		mapping = errorMapping{http.StatusInternalServerError, CodeInternal, false}
	}

	resp := errorResponse{Code: mapping.code}
	if mapping.public {
		resp.Error = err.Error()
	} else {
		resp.Error = http.StatusText(mapping.status)
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("code", mapping.code),
		zap.Error(err),
	}
	if mapping.status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Info("Request rejected", fields...)
	}

	render.Status(r, mapping.status)
	render.JSON(w, r, resp)
}
