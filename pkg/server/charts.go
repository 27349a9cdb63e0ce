package server

import (
	"net/http"
)

func (s *Server) handleGetChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tab, err := parseTab(r)
	if err != nil {
		s.writeError(ctx, w, "invalid chart request", err)
		return
	}

	c, res, err := s.loader.Chart(ctx, tab)
	if err != nil {
		s.writeError(ctx, w, "failed to load chart", err)
		return
	}

	if res.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	w.Header().Set("X-Data-Date", res.Date)
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tab, err := parseTab(r)
	if err != nil {
		s.writeError(ctx, w, "invalid chart request", err)
		return
	}
	if err := s.loader.Invalidate(tab); err != nil {
		s.writeError(ctx, w, "failed to invalidate chart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
