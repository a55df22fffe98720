package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jsj9346/screener/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func regionParam(r *http.Request) (domain.Region, bool) {
	raw := chi.URLParam(r, "region")
	for _, region := range domain.Regions {
		if string(region) == raw {
			return region, true
		}
	}
	return "", false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	if s.orch == nil {
		writeError(w, http.StatusServiceUnavailable, "orchestrator not configured")
		return
	}
	report, err := s.orch.Status(region, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStage0Passed(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	filterDate, found, err := s.stage0Repo.LatestFilterDate(region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, []domain.Stage0Entry{})
		return
	}
	entries, err := s.stage0Repo.PassedOn(region, filterDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStage1Passed(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	filterDate, found, err := s.stage0Repo.LatestFilterDate(region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, []domain.Stage1Entry{})
		return
	}
	entries, err := s.stage1Repo.PassedOn(region, filterDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStage2Latest(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	entries, err := s.stage2Repo.LatestByRegion(region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOpenTrades(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	trades, err := s.tradeRepo.OpenPositions(region)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleExecutionLog(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	stage, err := strconv.Atoi(chi.URLParam(r, "stage"))
	if err != nil || stage < 0 || stage > 2 {
		writeError(w, http.StatusBadRequest, "stage must be 0, 1, or 2")
		return
	}
	entries, err := s.execLog.RecentByStage(stage, region, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	region, ok := regionParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown region")
		return
	}
	trades, err := s.tradeRepo.RecentClosed(region, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, trades)
}
