package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/dog-adoption-api/internal/adoption"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/apperr"
	"github.com/PaulBabatuyi/dog-adoption-api/internal/identity"
)

// handleRegister creates a user and returns a token for it.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in identity.Credentials
	if err := decodeJSON(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.users.Register(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "User registered successfully", res)
}

// handleLogin authenticates a user and returns a fresh token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in identity.Credentials
	if err := decodeJSON(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.users.Authenticate(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Login successful", res)
}

func (s *Server) handleCreateDog(w http.ResponseWriter, r *http.Request) {
	caller, _ := identityFromContext(r.Context())

	var in adoption.NewDog
	if err := decodeJSON(r, &in, false); err != nil {
		s.fail(w, r, err)
		return
	}
	dog, err := s.dogs.Create(r.Context(), caller.ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusCreated, "Dog registered successfully", dog)
}

func (s *Server) handleGetDog(w http.ResponseWriter, r *http.Request) {
	dog, err := s.dogs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", dog)
}

type adoptRequest struct {
	ThankYouMessage string `json:"thankYouMessage"`
	// Message is accepted as an alias for older clients.
	Message string `json:"message"`
}

func (s *Server) handleAdoptDog(w http.ResponseWriter, r *http.Request) {
	caller, _ := identityFromContext(r.Context())

	var in adoptRequest
	if err := decodeJSON(r, &in, true); err != nil {
		s.fail(w, r, err)
		return
	}
	msg := in.ThankYouMessage
	if msg == "" {
		msg = in.Message
	}

	dog, err := s.dogs.Claim(r.Context(), caller.ID, chi.URLParam(r, "id"), msg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Dog adopted successfully!", dog)
}

func (s *Server) handleRemoveDog(w http.ResponseWriter, r *http.Request) {
	caller, _ := identityFromContext(r.Context())

	if err := s.dogs.Remove(r.Context(), caller.ID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "Dog removed successfully", nil)
}

func (s *Server) handleListRegistered(w http.ResponseWriter, r *http.Request) {
	caller, _ := identityFromContext(r.Context())

	page, err := s.dogs.ListOwned(r.Context(), caller.ID, r.URL.Query().Get("status"), pageRequest(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", page)
}

func (s *Server) handleListAdopted(w http.ResponseWriter, r *http.Request) {
	caller, _ := identityFromContext(r.Context())

	page, err := s.dogs.ListClaimed(r.Context(), caller.ID, pageRequest(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", page)
}

func (s *Server) handleListDogs(w http.ResponseWriter, r *http.Request) {
	page, err := s.dogs.ListAll(r.Context(), r.URL.Query().Get("status"), pageRequest(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.ok(w, http.StatusOK, "", page)
}

// pageRequest reads page and limit. Missing or non-numeric values are left
// at zero and replaced by defaults downstream.
func pageRequest(r *http.Request) adoption.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.ParseInt(q.Get("page"), 10, 64)
	limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
	return adoption.PageRequest{Page: page, Limit: limit}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": s.opts.AppEnv,
		"database":    "connected",
	}
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warn("health check: store unreachable", zap.Error(err))
		body["database"] = "disconnected"
		s.writeJSON(w, http.StatusServiceUnavailable, envelope{
			Message: "Dog Adoption Platform API is degraded",
			Data:    body,
		})
		return
	}
	s.ok(w, http.StatusOK, "Dog Adoption Platform API is running!", body)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.ok(w, http.StatusOK, "Welcome to the Dog Adoption Platform API!", map[string]any{
		"version": "1.0.0",
		"endpoints": map[string]any{
			"auth": map[string]string{
				"register": "POST /api/auth/register",
				"login":    "POST /api/auth/login",
			},
			"dogs": map[string]string{
				"list":          "GET /api/dogs",
				"get":           "GET /api/dogs/:id",
				"register":      "POST /api/dogs",
				"adopt":         "PUT /api/dogs/:id/adopt",
				"remove":        "DELETE /api/dogs/:id",
				"getRegistered": "GET /api/dogs/registered",
				"getAdopted":    "GET /api/dogs/adopted",
			},
		},
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, apperr.NotFound(apperr.CodeRouteNotFound, fmt.Sprintf("Route %s not found", r.URL.RequestURI())))
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusMethodNotAllowed, envelope{
		Code:    apperr.CodeMethodNotAllowed,
		Message: fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path),
	})
}
