package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"eduscroll-service/internal/app"
	"eduscroll-service/internal/domain"
)

// APIHandler serves the display/query endpoints: categories, lesson
// listings, the leaderboard, profile stats, and the client's preferences.
type APIHandler struct {
	service *app.LessonService
	prefs   app.Preferences
}

func NewAPIHandler(service *app.LessonService, prefs app.Preferences) *APIHandler {
	return &APIHandler{service: service, prefs: prefs}
}

// Register mounts the JSON endpoints on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/categories/{id}/lessons", h.listLessons)
	mux.HandleFunc("GET /api/ranking", h.ranking)
	mux.HandleFunc("GET /api/profile", h.profile)
	mux.HandleFunc("POST /api/guest", h.registerGuest)
	mux.HandleFunc("GET /api/guest", h.currentGuest)
	mux.HandleFunc("PUT /api/prefs/category", h.setPreferredCategory)
	mux.HandleFunc("GET /api/prefs/category", h.preferredCategory)
	mux.HandleFunc("DELETE /api/prefs", h.clearPrefs)
}

func (h *APIHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *APIHandler) listLessons(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid category id", http.StatusBadRequest)
		return
	}
	userID, err := queryInt(r, "userId")
	if err != nil {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}
	overviews, err := h.service.LessonOverviews(r.Context(), userID, categoryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overviews)
}

func (h *APIHandler) ranking(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt(r, "userId")
	if err != nil {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}
	entries, err := h.service.Leaderboard(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) profile(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt(r, "userId")
	if err != nil {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}
	stats, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) registerGuest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID int `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID <= 0 {
		http.Error(w, "invalid guest payload", http.StatusBadRequest)
		return
	}
	if err := h.prefs.SetGuest(r.Context(), body.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"userId": body.UserID})
}

func (h *APIHandler) currentGuest(w http.ResponseWriter, r *http.Request) {
	userID, ok, err := h.prefs.Guest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "no guest registered", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"userId": userID})
}

func (h *APIHandler) setPreferredCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CategoryID int `json:"categoryId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CategoryID <= 0 {
		http.Error(w, "invalid category payload", http.StatusBadRequest)
		return
	}
	if err := h.prefs.SetPreferredCategory(r.Context(), body.CategoryID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"categoryId": body.CategoryID})
}

func (h *APIHandler) preferredCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok, err := h.prefs.PreferredCategory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		http.Error(w, "no preferred category set", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"categoryId": categoryID})
}

func (h *APIHandler) clearPrefs(w http.ResponseWriter, r *http.Request) {
	if err := h.prefs.Clear(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(r.URL.Query().Get(name))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrLessonNotFound) || errors.Is(err, domain.ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}
