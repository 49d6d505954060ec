package handlers

import (
	"net/http"

	"github.com/courtclub/competition-system/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordDetail принимает результат одной партии матча.
func (h *MatchHandler) RecordDetail(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		WinnerTeamID int `json:"winner_team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	detail, err := h.matchService.RecordDetail(r.Context(), id, input.WinnerTeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"detail": detail}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecordResult напрямую фиксирует победителя матча сетки (без партий).
func (h *MatchHandler) RecordResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		WinnerTeamID int `json:"winner_team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.AdvanceBracket(r.Context(), id, input.WinnerTeamID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"winner_team_id": input.WinnerTeamID}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.DeleteMatch(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
