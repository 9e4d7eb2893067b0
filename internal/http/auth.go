package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/cinerate/internal/service"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (req *registerRequest) normalize() {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (req *loginRequest) normalize() {
	req.Email = strings.TrimSpace(req.Email)
}

type sessionResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	session, err := s.accounts.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusCreated, "User registered successfully", toSessionResponse(session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	session, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Login successful", toSessionResponse(session))
}

// handleLogout only acknowledges: tokens are stateless and expire on their own.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.respondData(w, http.StatusOK, "Logout successful", nil)
}

func toSessionResponse(session service.Session) sessionResponse {
	return sessionResponse{
		User:      toUserResponse(session.User),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}
}
