package records

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/marwan562/provisioning-bridge/internal/failure"
	"github.com/marwan562/provisioning-bridge/pkg/jsonutil"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger.With("component", "records-http")}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/records", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/records/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/records/{id}", h.Update).Methods(http.MethodPut)
	r.HandleFunc("/records/{id}", h.Delete).Methods(http.MethodDelete)
}

// Create answers 201 with the record and its account status (CREATED or
// PENDING). Downstream unavailability never turns into a 5xx here.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in NewRecord
	if err := jsonutil.DecodeJSON(r, &in); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.svc.Create(r.Context(), in)
	switch {
	case err == nil:
		jsonutil.WriteJSON(w, http.StatusCreated, created)
	case errors.Is(err, ErrEmailExists):
		jsonutil.WriteErrorJSON(w, http.StatusConflict, ErrEmailExists.Error())
	case failure.IsApplication(err) && created.Record.ID != "":
		// Stored, but the account service refused the account.
		jsonutil.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"record": created.Record,
			"error":  err.Error(),
		})
	case failure.IsApplication(err):
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to create record", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Failed to create record")
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		jsonutil.WriteErrorJSON(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to get record", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Failed to get record")
		return
	}
	jsonutil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in NewRecord
	if err := jsonutil.DecodeJSON(r, &in); err != nil {
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], in)
	switch {
	case err == nil:
		jsonutil.WriteJSON(w, http.StatusOK, rec)
	case errors.Is(err, ErrNotFound):
		jsonutil.WriteErrorJSON(w, http.StatusNotFound, ErrNotFound.Error())
	case errors.Is(err, ErrEmailExists):
		jsonutil.WriteErrorJSON(w, http.StatusConflict, ErrEmailExists.Error())
	case failure.IsApplication(err):
		jsonutil.WriteErrorJSON(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to update record", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Failed to update record")
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrNotFound) {
		jsonutil.WriteErrorJSON(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to delete record", "error", err)
		jsonutil.WriteErrorJSON(w, http.StatusInternalServerError, "Failed to delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
