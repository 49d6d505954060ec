package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/courtclub/competition-system/middleware"
	"github.com/courtclub/competition-system/services"
)

type BookingHandler struct {
	bookingService services.BookingService
}

func NewBookingHandler(bookingService services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func (h *BookingHandler) CreateCourt(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	court, err := h.bookingService.CreateCourt(r.Context(), input.Name, input.Location)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"court": court}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BookingHandler) ListCourts(w http.ResponseWriter, r *http.Request) {
	courts, err := h.bookingService.ListCourts(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"courts": courts}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	courtID, err := idParam(r, "courtID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, err := middleware.UserID(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	var input services.BookCourtInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.CourtID = courtID
	input.BookedBy = userID

	booking, err := h.bookingService.Book(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"booking": booking}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListBookings отдаёт брони корта за интервал from/to (RFC 3339, query).
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	courtID, err := idParam(r, "courtID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		badRequestResponse(w, r, errors.New("from query parameter must be RFC 3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		badRequestResponse(w, r, errors.New("to query parameter must be RFC 3339"))
		return
	}

	bookings, err := h.bookingService.ListByCourt(r.Context(), courtID, from, to)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"bookings": bookings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "bookingID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.bookingService.Cancel(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
