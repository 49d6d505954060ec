package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/courtclub/competition-system/services"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // ошибка программиста: передан не указатель
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func idParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s parameter %q", name, raw)
	}
	return id, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-ответы.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	var incomplete *services.IncompleteMatchesError

	switch {
	// Не найдено
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrContestNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrCourtNotFound),
		errors.Is(err, services.ErrUserNotFound):
		notFoundResponse(w, r)

	// Недоигранные матчи отдаём 422 со списком id
	case errors.As(err, &incomplete):
		errorResponse(w, r, http.StatusUnprocessableEntity, jsonResponse{
			"message":   "contest has matches without a result",
			"match_ids": incomplete.MatchIDs,
		})

	// Конфликты состояния и идемпотентность
	case errors.Is(err, services.ErrAlreadyFinished),
		errors.Is(err, services.ErrTeamAlreadyAssigned),
		errors.Is(err, services.ErrMatchLocked),
		errors.Is(err, services.ErrScheduleAlreadyExists),
		errors.Is(err, services.ErrRootNotFinishable),
		errors.Is(err, services.ErrContestStatusTransition),
		errors.Is(err, services.ErrTeamNameConflict),
		errors.Is(err, services.ErrAuthEmailTaken),
		errors.Is(err, services.ErrCourtBusy):
		conflictResponse(w, r, err.Error())

	// Ошибки валидации
	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrContestNameRequired),
		errors.Is(err, services.ErrContestInvalidMode),
		errors.Is(err, services.ErrContestInvalidStatus),
		errors.Is(err, services.ErrContestInvalidQuota),
		errors.Is(err, services.ErrContestNotSubStage),
		errors.Is(err, services.ErrContestNotRoot),
		errors.Is(err, services.ErrMatchMissingTeams),
		errors.Is(err, services.ErrDetailOverflow),
		errors.Is(err, services.ErrBookingInvalidInterval),
		errors.Is(err, services.ErrPasswordTooShort):
		badRequestResponse(w, r, err)

	case errors.Is(err, services.ErrAuthInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
