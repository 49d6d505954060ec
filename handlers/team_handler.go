package handlers

import (
	"errors"
	"net/http"

	"github.com/courtclub/competition-system/services"
)

const maxLogoSize = 5 << 20 // 5MB

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(teamService services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	rootID, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.Create(r.Context(), rootID, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	rootID, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.teamService.ListByRootContest(r.Context(), rootID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadLogo принимает multipart-форму с полем logo.
func (h *TeamHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		badRequestResponse(w, r, errors.New("invalid multipart form or file too large"))
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("logo file is required"))
		return
	}
	defer file.Close()

	team, err := h.teamService.UploadLogo(r.Context(), id, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
