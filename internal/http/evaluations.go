package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/service"
)

type evaluateRequest struct {
	MovieID *int64  `json:"movieId" validate:"required,gt=0"`
	Rating  *int    `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

func (req evaluateRequest) input() service.EvaluationInput {
	return service.EvaluationInput{
		MovieID: *req.MovieID,
		Rating:  *req.Rating,
		Comment: req.Comment,
	}
}

type evaluateManyRequest struct {
	Evaluations []evaluateRequest `json:"evaluations" validate:"required,min=1,max=100,dive"`
}

type evaluationResponse struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	MovieID    int64     `json:"movieId"`
	Rating     int       `json:"rating"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	MovieTitle string    `json:"movieTitle,omitempty"`
	MovieGenre string    `json:"movieGenre,omitempty"`
	Username   string    `json:"username,omitempty"`
}

type statisticsResponse struct {
	MovieID          int64   `json:"movieId"`
	AverageRating    float64 `json:"averageRating"`
	TotalEvaluations int64   `json:"totalEvaluations"`
	MinRating        int     `json:"minRating"`
	MaxRating        int     `json:"maxRating"`
}

type ratedMovieResponse struct {
	movieResponse
	AverageRating    float64 `json:"averageRating"`
	TotalEvaluations int64   `json:"totalEvaluations"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req evaluateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	evaluation, inserted, err := s.evaluations.Upsert(r.Context(), id.UserID, req.input())
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	message := "Evaluation updated successfully"
	if inserted {
		message = "Evaluation created successfully"
	}
	s.respondData(w, http.StatusCreated, message, toEvaluationResponse(evaluation))
}

func (s *Server) handleEvaluateMany(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req evaluateManyRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	inputs := make([]service.EvaluationInput, 0, len(req.Evaluations))
	for _, item := range req.Evaluations {
		inputs = append(inputs, item.input())
	}
	evaluations, err := s.evaluations.UpsertBatch(r.Context(), id.UserID, inputs)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusCreated, "Evaluations saved successfully", toEvaluationResponses(evaluations))
}

func (s *Server) handleListMovieEvaluations(w http.ResponseWriter, r *http.Request) {
	movieID, err := pathID(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	evaluations, err := s.evaluations.ListByMovie(r.Context(), movieID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Evaluations retrieved successfully", toEvaluationResponses(evaluations))
}

func (s *Server) handleListUserEvaluations(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	evaluations, err := s.evaluations.ListByUser(r.Context(), id.UserID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Evaluations retrieved successfully", toEvaluationResponses(evaluations))
}

func (s *Server) handleMovieStatistics(w http.ResponseWriter, r *http.Request) {
	movieID, err := pathID(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	stats, err := s.evaluations.Statistics(r.Context(), movieID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Statistics retrieved successfully", statisticsResponse{
		MovieID:          stats.MovieID,
		AverageRating:    stats.AverageRating,
		TotalEvaluations: stats.TotalEvaluations,
		MinRating:        stats.MinRating,
		MaxRating:        stats.MaxRating,
	})
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	evaluationID, err := pathID(r, "evaluationId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	evaluation, err := s.evaluations.GetByID(r.Context(), evaluationID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Evaluation retrieved successfully", toEvaluationResponse(evaluation))
}

func (s *Server) handleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	evaluationID, err := pathID(r, "evaluationId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := s.evaluations.DeleteOwned(r.Context(), id.UserID, evaluationID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Evaluation deleted successfully", nil)
}

func (s *Server) handleGetOwnEvaluation(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	movieID, err := pathID(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	evaluation, err := s.evaluations.GetByUserAndMovie(r.Context(), id.UserID, movieID)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Evaluation retrieved successfully", toEvaluationResponse(evaluation))
}

func (s *Server) handleDeleteOwnEvaluation(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	movieID, err := pathID(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if err := s.evaluations.DeleteByUserAndMovie(r.Context(), id.UserID, movieID); err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, "Evaluation deleted successfully", nil)
}

func (s *Server) handleTopRated(w http.ResponseWriter, r *http.Request) {
	movies, err := s.evaluations.TopRated(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	items := make([]ratedMovieResponse, 0, len(movies))
	for _, m := range movies {
		items = append(items, ratedMovieResponse{
			movieResponse:    toMovieResponse(m.Movie),
			AverageRating:    m.AverageRating,
			TotalEvaluations: m.TotalEvaluations,
		})
	}
	s.respondData(w, http.StatusOK, "Top rated movies retrieved successfully", items)
}

// parseLimit returns 0 for an absent, non-numeric or non-positive limit so the
// service default applies.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return 0
	}
	return limit
}

func toEvaluationResponse(e domain.Evaluation) evaluationResponse {
	return evaluationResponse{
		ID:         e.ID,
		UserID:     e.UserID,
		MovieID:    e.MovieID,
		Rating:     e.Rating,
		Comment:    e.Comment,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
		MovieTitle: e.MovieTitle,
		MovieGenre: e.MovieGenre,
		Username:   e.Username,
	}
}

func toEvaluationResponses(items []domain.Evaluation) []evaluationResponse {
	out := make([]evaluationResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toEvaluationResponse(e))
	}
	return out
}
