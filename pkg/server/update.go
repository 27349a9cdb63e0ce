package server

import (
	"net/http"
)

// handleUpdate takes a snapshot of today's energy and returns what was
// stored.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := s.collector.Run(ctx, s.now())
	if err != nil {
		s.writeError(ctx, w, "update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
