package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/repository"
)

type movieCreateRequest struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Genre       string  `json:"genre" validate:"required,max=100"`
	Director    *string `json:"director" validate:"omitempty,max=255"`
	Year        *int    `json:"year" validate:"omitempty,gte=1888,lte=2100"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (req *movieCreateRequest) normalize() {
	req.Title = strings.TrimSpace(req.Title)
	req.Genre = strings.TrimSpace(req.Genre)
	req.Director = normalizeStringPtr(req.Director)
	req.Description = normalizeStringPtr(req.Description)
}

type movieUpdateRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=255"`
	Genre       *string `json:"genre" validate:"omitnil,min=1,max=100"`
	Director    *string `json:"director" validate:"omitempty,max=255"`
	Year        *int    `json:"year" validate:"omitempty,gte=1888,lte=2100"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (req *movieUpdateRequest) normalize() {
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	if req.Genre != nil {
		genre := strings.TrimSpace(*req.Genre)
		req.Genre = &genre
	}
	req.Director = normalizeStringPtr(req.Director)
	req.Description = normalizeStringPtr(req.Description)
}

type movieListResponse struct {
	Items      []movieResponse `json:"items"`
	NextCursor *string         `json:"nextCursor,omitempty"`
}

type movieResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre"`
	Director    *string   `json:"director,omitempty"`
	Year        *int      `json:"year,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	filters, err := buildMovieFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := s.repo.Movies.List(r.Context(), filters)
	if err != nil {
		s.respondDomainError(w, r, domain.Internal(err, "Failed to list movies"))
		return
	}

	items := make([]movieResponse, 0, len(result.Items))
	for _, movie := range result.Items {
		items = append(items, toMovieResponse(movie))
	}
	s.respondData(w, http.StatusOK, "Movies retrieved successfully", movieListResponse{
		Items:      items,
		NextCursor: result.NextCursor,
	})
}

func buildMovieFilters(query url.Values) (repository.MovieListFilters, error) {
	var filters repository.MovieListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("year")); val != "" {
		year, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid year value")
		}
		filters.Year = &year
	}
	if val := strings.TrimSpace(query.Get("genre")); val != "" {
		filters.Genre = &val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	movie, err := s.repo.Movies.GetByID(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, movieError(err, "Failed to fetch movie"))
		return
	}
	s.respondData(w, http.StatusOK, "Movie retrieved successfully", toMovieResponse(movie))
}

func (s *Server) handleCreateMovie(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	movie, err := s.repo.Movies.Create(r.Context(), repository.MovieCreateParams{
		Title:       req.Title,
		Genre:       req.Genre,
		Director:    req.Director,
		Year:        req.Year,
		Description: req.Description,
	})
	if err != nil {
		s.respondDomainError(w, r, domain.Internal(err, "Failed to create movie"))
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/movies/%d", movie.ID))
	s.respondData(w, http.StatusCreated, "Movie created successfully", toMovieResponse(movie))
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	var req movieUpdateRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	movie, err := s.repo.Movies.Update(r.Context(), id, repository.MovieUpdateParams{
		Title:       req.Title,
		Genre:       req.Genre,
		Director:    req.Director,
		Year:        req.Year,
		Description: req.Description,
	})
	if err != nil {
		s.respondDomainError(w, r, movieError(err, "Failed to update movie"))
		return
	}
	s.respondData(w, http.StatusOK, "Movie updated successfully", toMovieResponse(movie))
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "movieId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	deleted, err := s.repo.Movies.Delete(r.Context(), id)
	if err != nil {
		s.respondDomainError(w, r, domain.Internal(err, "Failed to delete movie"))
		return
	}
	if !deleted {
		s.respondDomainError(w, r, domain.NotFoundf("Movie not found"))
		return
	}
	s.respondData(w, http.StatusOK, "Movie deleted successfully", nil)
}

func movieError(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NotFoundf("Movie not found")
	}
	return domain.Internal(err, message)
}

func toMovieResponse(movie domain.Movie) movieResponse {
	return movieResponse{
		ID:          movie.ID,
		Title:       movie.Title,
		Genre:       movie.Genre,
		Director:    movie.Director,
		Year:        movie.Year,
		Description: movie.Description,
		CreatedAt:   movie.CreatedAt,
		UpdatedAt:   movie.UpdatedAt,
	}
}
