package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/domain"
)

const maxRequestBody = 1 << 20

type similarCasesRequest struct {
	WorkTypes       *[]string `json:"workTypes"`
	WorkName        string    `json:"workName"`
	WorkDescription string    `json:"workDescription"`
	EquipmentName   string    `json:"equipmentName"`
	Limit           *int      `json:"limit,omitempty"`
}

type statusResponse struct {
	State string `json:"state"`
	Cases int    `json:"cases"`
}

func (s *Server) similarCasesHandler(w http.ResponseWriter, r *http.Request) {
	var req similarCasesRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		handleError(r.Context(), w, goerr.Wrap(domain.ErrInvalidQuery, "invalid request body", goerr.V("cause", err.Error())), http.StatusBadRequest)
		return
	}
	if req.WorkTypes == nil {
		handleError(r.Context(), w, goerr.Wrap(domain.ErrInvalidQuery, "workTypes is required"), http.StatusBadRequest)
		return
	}

	k := s.defaultK
	if req.Limit != nil {
		k = min(max(*req.Limit, 1), s.maxK)
	}
	q := domain.SimilarityQuery{
		WorkTypes:       *req.WorkTypes,
		WorkName:        req.WorkName,
		WorkDescription: req.WorkDescription,
		EquipmentName:   req.EquipmentName,
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	result, err := s.uc.FindSimilarCases(ctx, q, k)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			handleError(ctx, w, err, http.StatusBadRequest)
			return
		}
		handleError(ctx, w, goerr.Wrap(err, "failed to find similar cases"), http.StatusInternalServerError)
		return
	}

	writeJSON(ctx, w, http.StatusOK, result.Cases())
}

func (s *Server) caseByIDHandler(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		handleError(r.Context(), w, goerr.Wrap(domain.ErrInvalidQuery, "invalid case id", goerr.V("id", raw)), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.withTimeout(r.Context())
	defer cancel()

	if err := s.uc.Initialize(ctx); err != nil {
		handleError(ctx, w, goerr.Wrap(err, "failed to initialize similarity service"), http.StatusInternalServerError)
		return
	}

	c, ok := s.uc.GetCaseByID(id)
	if !ok {
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "case not found"})
		return
	}
	writeJSON(ctx, w, http.StatusOK, c)
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, statusResponse{
		State: s.uc.State().String(),
		Cases: s.uc.Len(),
	})
}
