package checker

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/steamcheck/checker/internal/remote"
)

// maxPageBody caps submitted pages.
const maxPageBody = 32 << 20

// Routes returns the HTTP control surface:
//
//	GET  /health
//	GET  /identity
//	PUT  /identity           {"steamid": "...", "id64": true}
//	POST /game-data/remove
//	POST /highlight          {"path": "/store", "html": "..."}
func (c *Checker) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/identity", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			id, reason, err := c.Identity(r.Context())
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, identityResponse{Identity: id, Reason: reason})
		})
		r.Put("/", func(w http.ResponseWriter, r *http.Request) {
			var id remote.Identity
			if err := json.NewDecoder(r.Body).Decode(&id); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
				return
			}
			if id.SteamID == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "steamid is required"})
				return
			}
			if err := c.SetIdentity(r.Context(), id); err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"message": "Identity saved"})
		})
	})

	r.Post("/game-data/remove", func(w http.ResponseWriter, r *http.Request) {
		msg, err := c.RemoveGameData(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": msg})
	})

	r.Post("/highlight", func(w http.ResponseWriter, r *http.Request) {
		var req highlightRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxPageBody)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
		if req.Path == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
			return
		}
		res, err := c.HighlightHTML(r.Context(), req.Path, req.HTML)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
