package httpserver

import (
	"net/http"
	"time"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/service"
)

type userUpdateRequest struct {
	Username *string `json:"username" validate:"omitnil,min=3,max=50"`
	Email    *string `json:"email" validate:"omitnil,email,max=255"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.ListUsers(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUserResponse(u))
	}
	s.respondData(w, http.StatusOK, "Users retrieved successfully", items)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	user, err := s.accounts.GetUser(r.Context(), userID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "User retrieved successfully", toUserResponse(user))
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	userID, err := pathID(r, "userId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	var req userUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	user, err := s.accounts.UpdateUser(r.Context(), id.UserID, userID, service.UserUpdateInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "User updated successfully", toUserResponse(user))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	userID, err := pathID(r, "userId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := s.accounts.DeleteUser(r.Context(), id.UserID, userID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "User deleted successfully", nil)
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
