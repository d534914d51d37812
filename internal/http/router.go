package http

import (
	"net/http"
)

// RouterConfig wires handlers into the router. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Cycles     *CycleHandler
	Rotation   *RotationHandler
	Schedules  *ScheduleHandler
	Dashboard  *DashboardHandler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Cycles != nil {
		mux.HandleFunc("GET /churches/{church}/cycles/{cycle}", cfg.Cycles.Current)
		mux.HandleFunc("POST /churches/{church}/cycles/{cycle}/musicians", cfg.Cycles.Add)
		mux.HandleFunc("POST /churches/{church}/cycles/{cycle}/moves", cfg.Cycles.Move)
		mux.HandleFunc("DELETE /churches/{church}/cycles/{cycle}/items/{index}", cfg.Cycles.Remove)
		mux.HandleFunc("POST /churches/{church}/cycles/{cycle}/save", cfg.Cycles.Save)
	}

	if cfg.Rotation != nil {
		mux.HandleFunc("POST /churches/{church}/rotation/preview", cfg.Rotation.Preview)
		mux.HandleFunc("POST /churches/{church}/rotation/regenerate", cfg.Rotation.Regenerate)
	}

	if cfg.Schedules != nil {
		mux.HandleFunc("GET /churches/{church}/schedules", cfg.Schedules.List)
		mux.HandleFunc("POST /churches/{church}/schedules", cfg.Schedules.Create)
		mux.HandleFunc("POST /churches/{church}/schedules/import", cfg.Schedules.Import)
		mux.HandleFunc("GET /schedules/{id}", cfg.Schedules.Get)
		mux.HandleFunc("PUT /schedules/{id}", cfg.Schedules.Update)
		mux.HandleFunc("DELETE /schedules/{id}", cfg.Schedules.Delete)
		mux.HandleFunc("GET /schedules/{id}/export", cfg.Schedules.Export)
	}

	if cfg.Dashboard != nil {
		mux.HandleFunc("GET /churches/{church}/dashboard", cfg.Dashboard.Show)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
