package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sells-group/geo-enrich/internal/enrich"
	"github.com/sells-group/geo-enrich/internal/resolution"
	"github.com/sells-group/geo-enrich/pkg/geocode"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 16 << 20

type enrichRequest struct {
	Provider string                 `json:"provider"`
	APIKey   string                 `json:"api_key"`
	Workers  int                    `json:"workers"`
	Records  []enrich.AddressRecord `json:"records"`
}

type enrichResponse struct {
	RunID   string                  `json:"run_id"`
	Results []enrich.EnrichedRecord `json:"results"`
	Summary enrich.Summary          `json:"summary"`
}

type resolutionRequest struct {
	URLs []string `json:"urls"`
}

type resolutionResponse struct {
	Results []resolution.Result `json:"results"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"providers": geocode.Names()})
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	var req enrichRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records is required")
		return
	}
	if s.cfg.MaxRecords > 0 && len(req.Records) > s.cfg.MaxRecords {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many records: %d (max %d)", len(req.Records), s.cfg.MaxRecords))
		return
	}

	provider, err := s.providers(req.Provider, req.APIKey)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var opts []enrich.ResolverOption
	if s.cfg.AdoptReverseUnchecked {
		opts = append(opts, enrich.AdoptReverseUnchecked())
	}
	workers := s.cfg.Workers
	if req.Workers > 0 {
		workers = req.Workers
	}

	runner := enrich.NewRunner(enrich.NewResolver(provider, s.table, opts...), enrich.WithWorkers(workers))
	results, summary := runner.Run(r.Context(), req.Records)

	writeJSON(w, http.StatusOK, enrichResponse{RunID: summary.RunID, Results: results, Summary: summary})
}

func (s *Server) handleResolution(w http.ResponseWriter, r *http.Request) {
	var req resolutionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}
	if s.cfg.MaxRecords > 0 && len(req.URLs) > s.cfg.MaxRecords {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many urls: %d (max %d)", len(req.URLs), s.cfg.MaxRecords))
		return
	}

	results := s.checker.Check(r.Context(), req.URLs, nil)
	writeJSON(w, http.StatusOK, resolutionResponse{Results: results})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
