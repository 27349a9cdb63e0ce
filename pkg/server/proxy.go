package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gehringer/solarboard/pkg/apsystems"
	"github.com/gehringer/solarboard/pkg/log"
	"github.com/gehringer/solarboard/pkg/types"
)

// handleSolarData relays GET ?date=YYYY-MM-DD&type=hourly|astro|history to
// the matching webhook and wraps whatever it returns in a DataResponse.
func (s *Server) handleSolarData(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "GET, OPTIONS")
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet:
	default:
		s.writeJSONError(w, "method not allowed, use GET", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	date := q.Get("date")
	typ := q.Get("type")
	if typ == "" {
		typ = string(types.DefaultDataType)
	}

	var v validator
	if v.require("date", date) {
		v.date("date", date)
	}
	dataType, ok := types.ParseDataType(typ)
	v.check(ok, "invalid type %q, supported types: %s", typ, strings.Join(dataTypeNames(), ", "))
	if err := v.err(); err != nil {
		s.writeError(ctx, w, "invalid solar-data request", err)
		return
	}

	log.Ctx(ctx).DebugContext(ctx, "relaying solar-data", slog.String("type", typ), slog.String("date", date))
	items, err := s.webhook.Fetch(ctx, dataType, date)
	if err != nil {
		s.writeError(ctx, w, "solar-data relay failed", err)
		return
	}

	writeJSON(w, http.StatusOK, types.DataResponse{
		Success:  true,
		Type:     dataType,
		Data:     items,
		RowCount: len(items),
		Date:     date,
	})
}

func dataTypeNames() []string {
	names := make([]string, len(types.DataTypes))
	for i, t := range types.DataTypes {
		names[i] = string(t)
	}
	return names
}

// handleAPSystems signs and forwards ?appId=&appSecret=&endpoint= to the
// APsystems API and returns its JSON untouched.
func (s *Server) handleAPSystems(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w, "GET, POST, OPTIONS")
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodGet, http.MethodPost:
	default:
		s.writeJSONError(w, "method not allowed, use GET or POST", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	creds := apsystems.Credentials{
		AppID:     r.FormValue("appId"),
		AppSecret: r.FormValue("appSecret"),
	}
	endpoint := r.FormValue("endpoint")

	var v validator
	v.require("appId", creds.AppID)
	v.require("appSecret", creds.AppSecret)
	if v.require("endpoint", endpoint) {
		v.check(strings.HasPrefix(endpoint, "/"), "invalid endpoint %q, must start with /", endpoint)
	}
	if err := v.err(); err != nil {
		s.writeError(ctx, w, "invalid apsystems request", err)
		return
	}

	body, err := s.apsystems.Do(ctx, creds, endpoint)
	if err != nil {
		s.writeError(ctx, w, "apsystems relay failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		panic(http.ErrAbortHandler)
	}
}
