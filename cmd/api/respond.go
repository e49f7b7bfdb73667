package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
)

// envelope is the body of every response.
type envelope struct {
	Success bool              `json:"success"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) ok(w http.ResponseWriter, status int, message string, data any) {
	s.writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// fail maps err to its status code. Unclassified errors are logged and, in
// production, reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		ae = apperr.Internal(err)
	}

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.String("code", ae.Code),
	}

	body := envelope{Code: ae.Code, Message: ae.Message, Errors: ae.Fields}
	if ae.Kind != apperr.KindInternal {
		s.log.Debug("request rejected", fields...)
	} else {
		s.log.Error("request failed", append(fields, zap.Error(err))...)
		if s.opts.Production {
			body.Message = "Something went wrong!"
		} else if ae.Err != nil {
			body.Message = ae.Err.Error()
		}
	}
	s.writeJSON(w, ae.Kind.HTTPStatus(), body)
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation(apperr.CodeValidation, "Request body too large")
	}
	return apperr.Wrap(apperr.KindValidation, apperr.CodeValidation, "Invalid JSON body", err)
}
