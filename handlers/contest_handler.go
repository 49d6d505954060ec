package handlers

import (
	"net/http"

	"github.com/courtclub/competition-system/models"
	"github.com/courtclub/competition-system/services"
)

type ContestHandler struct {
	contestService  services.ContestService
	stageService    services.StageService
	scheduleService services.ScheduleService
	finishService   services.FinishService
}

func NewContestHandler(
	contestService services.ContestService,
	stageService services.StageService,
	scheduleService services.ScheduleService,
	finishService services.FinishService,
) *ContestHandler {
	return &ContestHandler{
		contestService:  contestService,
		stageService:    stageService,
		scheduleService: scheduleService,
		finishService:   finishService,
	}
}

func (h *ContestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateContestInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contest, err := h.contestService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"contest": contest}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contest, err := h.contestService.GetSnapshot(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"contest": contest}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) GetBracket(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bracket, err := h.contestService.GetBracket(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": bracket}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status models.ContestStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.contestService.UpdateStatus(r.Context(), id, input.Status); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": input.Status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.scheduleService.GenerateSchedule(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ranking, err := h.finishService.RefreshRanking(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"ranking": ranking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) Finish(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	qualified, err := h.finishService.Finish(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"qualified_team_ids": qualified}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) FinishRoot(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.contestService.FinishRoot(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"status": models.StatusFinished}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) CreateSubStage(w http.ResponseWriter, r *http.Request) {
	rootID, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CreateSubStageInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	subStage, err := h.stageService.CreateSubStage(r.Context(), rootID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"sub_stage": subStage}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) AssignTeams(w http.ResponseWriter, r *http.Request) {
	subStageID, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		TeamIDs []int `json:"team_ids"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.stageService.AssignTeams(r.Context(), subStageID, input.TeamIDs); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"assigned_team_ids": input.TeamIDs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ContestHandler) GetPendingPool(w http.ResponseWriter, r *http.Request) {
	rootID, err := idParam(r, "contestID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pool, err := h.stageService.PendingPool(r.Context(), rootID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"pending_pool": pool}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
