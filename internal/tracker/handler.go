package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vedantk/habit-tracker/internal/habit"
	"github.com/vedantk/habit-tracker/internal/models"
	"github.com/vedantk/habit-tracker/internal/store"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SnapshotStore defines the interface for ledger snapshot storage.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, u *models.User, now time.Time) (string, error)
	GetSnapshot(ctx context.Context, key string) ([]byte, error)
}

// Handler holds the habit-tracking HTTP handlers.
type Handler struct {
	svc       *Service
	users     UserStore
	snapshots SnapshotStore
}

func NewHandler(svc *Service, users UserStore, snapshots SnapshotStore) *Handler {
	return &Handler{svc: svc, users: users, snapshots: snapshots}
}

// writeError translates service failures into the HTTP taxonomy: absent
// user/habit is 404, a closed gate or bad input is 400, anything else is a
// logged 500 with no internal detail leaked.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
	case errors.Is(err, ErrHabitNotFound):
		http.Error(w, `{"error":"habit not found"}`, http.StatusNotFound)
	case errors.Is(err, habit.ErrNotEligible):
		http.Error(w, `{"error":"24 hours have not passed since the last update"}`, http.StatusBadRequest)
	case errors.Is(err, habit.ErrEmptyName):
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
	default:
		log.Printf("tracker error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}

// List returns all users with derived eligibility flags.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if views == nil {
		views = []models.UserView{}
	}
	writeJSON(w, http.StatusOK, views)
}

// Get returns a single user; every habit carries has24HoursPassed computed
// against the current wall clock.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Increment applies the gated point increment.
func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.IncrementHabit(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Rename changes a habit's label.
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var req models.RenameHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
		return
	}

	updated, err := h.svc.RenameHabit(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "habitID"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Edit applies a generic partial update. This is the administrative path and
// deliberately skips the 24-hour gate.
func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	var req models.EditHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	updated, err := h.svc.EditHabit(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "habitID"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// History returns the audit trail for one habit.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.HabitHistory(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "habitID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []models.HabitEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Export snapshots a user's ledger to object storage.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}

	key, err := h.snapshots.PutSnapshot(r.Context(), user, time.Now())
	if err != nil {
		log.Printf("put snapshot: %v", err)
		http.Error(w, `{"error":"export failed"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"objectKey": key})
}

// DownloadExport streams a stored snapshot back as JSON.
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, `{"error":"key query parameter is required"}`, http.StatusBadRequest)
		return
	}
	// snapshots are namespaced per user; don't serve another user's export
	if !strings.HasPrefix(key, chi.URLParam(r, "userID")+"/") {
		http.Error(w, `{"error":"snapshot not found"}`, http.StatusNotFound)
		return
	}

	data, err := h.snapshots.GetSnapshot(r.Context(), key)
	if err != nil {
		log.Printf("get snapshot: %v", err)
		http.Error(w, `{"error":"snapshot not found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=habits.json")
	w.Write(data)
}
