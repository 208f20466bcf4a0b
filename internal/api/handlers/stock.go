package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/sectorwatch/internal/contracts"
	"github.com/wonny/sectorwatch/pkg/logger"
)

// StockReader is the read side of the store
type StockReader interface {
	Stocks(ctx context.Context) ([]contracts.StockRecord, error)
	Watchlist(ctx context.Context) ([]contracts.WatchlistEntry, error)
}

// StockHandler handles stock data API endpoints
// ⭐ SSOT: 종목 데이터 API 핸들러는 이 구조체에서만
type StockHandler struct {
	store  StockReader
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(store StockReader, log *logger.Logger) *StockHandler {
	return &StockHandler{
		store:  store,
		logger: log,
	}
}

// GetStocks returns all stocks as a sector → industry → stock tree
// GET /api/stocks
func (h *StockHandler) GetStocks(w http.ResponseWriter, r *http.Request) {
	views, ok := h.views(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, BuildSectorTree(views))
}

// GetGraph returns the tree as nodes and links
// GET /api/stocks/graph
func (h *StockHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	views, ok := h.views(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, BuildGraph(BuildSectorTree(views)))
}

// GetStock returns one stock view
// GET /api/stocks/{symbol}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	views, ok := h.views(w, r)
	if !ok {
		return
	}
	for _, v := range views {
		if v.Symbol == symbol {
			respondJSON(w, http.StatusOK, v)
			return
		}
	}
	respondError(w, http.StatusNotFound, "stock not found")
}

// GetWatchlist returns the current watchlist
// GET /api/watchlist
func (h *StockHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	watchlist, err := h.store.Watchlist(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve watchlist")
		return
	}
	if watchlist == nil {
		watchlist = []contracts.WatchlistEntry{}
	}
	respondJSON(w, http.StatusOK, watchlist)
}

// LastUpdatedResponse is the newest record update time; nil when the store is empty
type LastUpdatedResponse struct {
	LastUpdated *time.Time `json:"last_updated"`
}

// GetLastUpdated returns the newest record update time
// GET /api/last-updated
func (h *StockHandler) GetLastUpdated(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.Stocks(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get stocks")
		respondError(w, http.StatusInternalServerError, "Failed to fetch last update time")
		return
	}

	var resp LastUpdatedResponse
	for _, rec := range records {
		if resp.LastUpdated == nil || rec.LastUpdate.After(*resp.LastUpdated) {
			t := rec.LastUpdate
			resp.LastUpdated = &t
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *StockHandler) views(w http.ResponseWriter, r *http.Request) ([]contracts.StockView, bool) {
	records, err := h.store.Stocks(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get stocks")
		respondError(w, http.StatusInternalServerError, "Failed to fetch stock data")
		return nil, false
	}

	views := make([]contracts.StockView, 0, len(records))
	for _, rec := range records {
		views = append(views, rec.View())
	}
	return views, true
}
