package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"sectorview/database"
	"sectorview/database/outliers"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	var notFound *database.NotFoundError
	switch {
	case errors.Is(err, database.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, database.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleGetSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := s.service.Sectors()
	if err != nil {
		respondWithError(w, statusFor(err), "failed to list sectors", err)
		return
	}
	respondJSON(w, http.StatusOK, sectors)
}

func (s *Server) handleGetSectorPerformance(w http.ResponseWriter, r *http.Request) {
	universe := r.URL.Query().Get("universe")
	summaries, err := s.service.GetSectorPerformance(r.Context(), universe)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError && universe != "" {
			code = http.StatusBadRequest
		}
		respondWithError(w, code, "failed to load sector performance", err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetSectorOutliers(w http.ResponseWriter, r *http.Request) {
	sectorID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid sector id", err)
		return
	}

	threshold := getFloatPtrParam(r, "threshold")
	universe := r.URL.Query().Get("universe")

	stocks, err := s.service.GetSectorOutliers(r.Context(), sectorID, threshold, universe)
	if err != nil {
		respondWithError(w, statusFor(err), "failed to load sector outliers", err)
		return
	}
	respondJSON(w, http.StatusOK, stocks)
}

func (s *Server) handleGetSectorStocks(w http.ResponseWriter, r *http.Request) {
	sectorID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid sector id", err)
		return
	}
	universe := r.URL.Query().Get("universe")

	stocks, err := s.service.SectorStocks(sectorID, universe)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError && universe != "" {
			code = http.StatusBadRequest
		}
		respondWithError(w, code, "failed to list sector stocks", err)
		return
	}
	respondJSON(w, http.StatusOK, stocks)
}

func (s *Server) handleRefreshMarketData(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RefreshMarketData(r.Context())
	if err != nil {
		respondWithError(w, statusFor(err), err.Error(), err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefreshSecondary(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RefreshSecondaryUniverseData(r.Context())
	if err != nil {
		respondWithError(w, statusFor(err), err.Error(), err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRefreshSector(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	summaries, err := s.service.RefreshSectorData(r.Context(), symbol)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error(), err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleDetectOutliers(w http.ResponseWriter, r *http.Request) {
	threshold := getFloatPtrParam(r, "threshold")
	universe := r.URL.Query().Get("universe")

	found, err := s.service.DetectOutliers(r.Context(), threshold, universe)
	if err != nil {
		code := statusFor(err)
		if code == http.StatusInternalServerError && universe != "" {
			code = http.StatusBadRequest
		}
		respondWithError(w, code, "outlier detection failed", err)
		return
	}
	respondJSON(w, http.StatusOK, found)
}

func (s *Server) handleListDetections(w http.ResponseWriter, r *http.Request) {
	filter := outliers.Filter{
		StockID:      int64(getIntParam(r, "stock_id", 0)),
		SectorID:     int64(getIntParam(r, "sector_id", 0)),
		UniverseType: r.URL.Query().Get("universe"),
	}
	if min := getFloatPtrParam(r, "min_composite"); min != nil {
		filter.MinComposite = *min
	}
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		if date, err := time.Parse("2006-01-02", dateStr); err == nil {
			filter.Date = date
		}
	}

	detections, err := s.service.ListDetections(filter)
	if err != nil {
		respondWithError(w, statusFor(err), "failed to list detections", err)
		return
	}
	respondJSON(w, http.StatusOK, detections)
}

func (s *Server) handleGetStock(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	stock, snapshot, err := s.service.StockBySymbol(symbol)
	if err != nil {
		respondWithError(w, statusFor(err), "stock lookup failed", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"stock":    stock,
		"snapshot": snapshot,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
