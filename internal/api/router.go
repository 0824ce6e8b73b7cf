package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/gamify-web/internal/auth"
	"github.com/tahcohcat/gamify-web/internal/services"
)

type Deps struct {
	Users        *services.UserService
	Progress     *services.ProgressService
	Achievements *services.AchievementService
	Auth         *auth.Manager
	// Push is mounted at /ws when set.
	Push http.Handler
}

// NewRouter builds the full HTTP surface. Every route runs behind the
// request logger and user resolution; handlers reject anonymous callers
// themselves.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger)
	r.Use(d.Auth.Resolve)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	RegisterAuthRoutes(apiRouter, NewAuthHandler(d.Users, d.Progress, d.Auth))
	RegisterRoutes(apiRouter, NewProgressionHandler(d.Progress, d.Achievements, d.Users))

	if d.Push != nil {
		r.Handle("/ws", d.Push).Methods("GET")
	}
	return r
}
