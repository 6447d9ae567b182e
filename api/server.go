package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	models "sectorview/database/models_pkg"
	"sectorview/database/outliers"
	"sectorview/database/types"
	"sectorview/realtime"
)

// Service defines the tracker operations the HTTP layer exposes
type Service interface {
	GetSectorPerformance(ctx context.Context, universeType string) ([]types.SectorSummary, error)
	RefreshMarketData(ctx context.Context) (*types.RefreshResult, error)
	RefreshSectorData(ctx context.Context, sectorSymbol string) ([]types.SectorSummary, error)
	RefreshSecondaryUniverseData(ctx context.Context) (*types.RefreshResult, error)
	DetectOutliers(ctx context.Context, threshold *float64, universeType string) ([]types.SectorOutliers, error)
	GetSectorOutliers(ctx context.Context, sectorID int64, threshold *float64, universeType string) ([]types.OutlierStock, error)
	ListDetections(f outliers.Filter) ([]models.OutlierDetection, error)
	Sectors() ([]models.Sector, error)
	SectorStocks(sectorID int64, universeType string) ([]models.Stock, error)
	StockBySymbol(symbol string) (*models.Stock, *models.MarketDataSnapshot, error)
}

// Server handles HTTP API requests
type Server struct {
	service Service
	broker  *realtime.Broker
	hub     *ProgressHub
}

// NewServer creates a new API server instance
func NewServer(service Service, broker *realtime.Broker, hub *ProgressHub) *Server {
	return &Server{
		service: service,
		broker:  broker,
		hub:     hub,
	}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Progress streams: SSE for the dashboard, WebSocket for tooling
	mux.Handle("GET /api/events", s.broker)
	mux.HandleFunc("GET /api/progress/ws", s.hub.ServeHTTP)

	// Sector views
	mux.HandleFunc("GET /api/sectors", s.handleGetSectors)
	mux.HandleFunc("GET /api/sectors/performance", s.handleGetSectorPerformance)
	mux.HandleFunc("GET /api/sectors/{id}/outliers", s.handleGetSectorOutliers)
	mux.HandleFunc("GET /api/sectors/{id}/stocks", s.handleGetSectorStocks)

	// Refresh operations
	mux.HandleFunc("POST /api/refresh", s.handleRefreshMarketData)
	mux.HandleFunc("POST /api/refresh/secondary", s.handleRefreshSecondary)
	mux.HandleFunc("POST /api/refresh/sector/{symbol}", s.handleRefreshSector)

	// Outlier detection
	mux.HandleFunc("POST /api/outliers/detect", s.handleDetectOutliers)
	mux.HandleFunc("GET /api/outliers", s.handleListDetections)

	// Stock lookup
	mux.HandleFunc("GET /api/stocks/{symbol}", s.handleGetStock)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Serve Static Files (Public UI)
	fs := http.FileServer(http.Dir("./public"))
	mux.Handle("GET /", fs)

	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
