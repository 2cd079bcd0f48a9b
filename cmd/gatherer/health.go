package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/skyblock-data/internal/cache"
	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/metrics"
	"github.com/rickgao/skyblock-data/internal/model"
	"github.com/rickgao/skyblock-data/internal/router"
	"github.com/rickgao/skyblock-data/internal/writer"
)

// nameResolver looks up player names.
type nameResolver interface {
	Username(ctx context.Context, id uuid.UUID) (string, error)
}

// queueStats reports write queue state.
type queueStats interface {
	Stats() writer.WriterMetrics
	Pending() int
}

// server holds what the health and debug endpoints read.
type server struct {
	router   *router.Router
	gateway  writer.Gateway
	cache    *cache.RedisCache // nil when disabled
	hub      http.Handler
	metrics  *metrics.Metrics
	writer   queueStats
	names    nameResolver
	pingDB   func(context.Context) error
	maxStale time.Duration
	logger   *slog.Logger
}

// listingView is a listing as shown by the debug endpoints.
type listingView struct {
	ID       uuid.UUID `json:"id"`
	Seller   string    `json:"seller"`
	ItemName string    `json:"item_name"`
	Rarity   string    `json:"rarity"`
	Price    float64   `json:"price"`
	BuyNow   bool      `json:"bin"`
	End      time.Time `json:"end"`
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/debug/latest", s.handleLatest)
	mux.HandleFunc("/debug/lbin", s.handleListings(s.router.CheapestBIN, true))
	mux.HandleFunc("/debug/endsoon", s.handleListings(s.router.EndingSoon, false))
	mux.HandleFunc("/debug/history", s.handleHistory)
	mux.HandleFunc("/debug/cached", s.handleCached)
	if s.hub != nil {
		mux.Handle("/ws", s.hub)
	}
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status:     "healthy",
		Components: make(map[string]any),
	}

	// Check database
	if err := s.pingDB(ctx); err != nil {
		health.Status = "unhealthy"
		health.Components["storage"] = map[string]string{
			"status": "disconnected",
			"error":  err.Error(),
		}
	} else {
		health.Components["storage"] = "connected"
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
			health.Components["redis"] = map[string]string{"status": "disconnected", "error": err.Error()}
		} else {
			health.Components["redis"] = "connected"
		}
	}

	// Check snapshot freshness
	last := s.metrics.Snapshot().LastSnapshot
	feed := map[string]any{"last_snapshot": last}
	if last.IsZero() || time.Since(last) > s.maxStale {
		feed["stale"] = true
		if health.Status == "healthy" {
			health.Status = "degraded"
		}
	}
	health.Components["feed"] = feed

	status := http.StatusOK
	if health.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"metrics": s.metrics.Snapshot(),
		"router":  s.router.Stats(),
	}
	if s.writer != nil {
		resp["writer"] = s.writer.Stats()
		resp["writer_pending"] = s.writer.Pending()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleLatest(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	if snap, ok := s.router.Latest(); ok {
		resp["active"] = map[string]any{"last_updated": snap.LastUpdated, "listings": len(snap.Listings)}
	}
	if snap, ok := s.router.LatestEnded(); ok {
		resp["ended"] = map[string]any{"last_updated": snap.LastUpdated, "listings": len(snap.Listings)}
	}
	if len(resp) == 0 {
		writeError(w, http.StatusServiceUnavailable, router.ErrNoSnapshot)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleListings serves the top listings of an item from the latest
// snapshot, resolving seller names when withNames is set.
func (s *server) handleListings(query func(string, int) ([]model.ActiveListing, error), withNames bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := r.URL.Query().Get("item")
		if itemID == "" {
			writeError(w, http.StatusBadRequest, errors.New("item is required"))
			return
		}
		n := intParam(r, "n", 5)

		listings, err := query(itemID, n)
		if errors.Is(err, router.ErrNoSnapshot) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}

		views := make([]listingView, len(listings))
		for i, l := range listings {
			views[i] = listingView{
				ID:       l.ID,
				ItemName: l.Item.DisplayName,
				Rarity:   l.Item.Rarity.String(),
				Price:    l.Price,
				BuyNow:   l.BuyNow,
				End:      l.End,
			}
			if withNames && s.names != nil && l.SellerID != uuid.Nil {
				name, err := s.names.Username(r.Context(), l.SellerID)
				if err != nil {
					s.logger.Debug("seller lookup failed", "seller", l.SellerID, "error", err)
					continue
				}
				views[i].Seller = name
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"item": itemID, "listings": views})
	}
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID := q.Get("item")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, errors.New("item is required"))
		return
	}
	series, err := seriesParam(q.Get("series"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	span := time.Duration(intParam(r, "hours", 24)) * time.Hour

	rarity, err := s.rarityParam(r.Context(), itemID, q.Get("rarity"))
	if errors.Is(err, writer.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	points, err := s.gateway.ReadPriceHistory(r.Context(), series, itemID, rarity, span)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":   itemID,
		"rarity": rarity.String(),
		"series": series,
		"points": points,
	})
}

func (s *server) handleCached(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusNotFound, errors.New("redis cache disabled"))
		return
	}
	q := r.URL.Query()
	itemID := q.Get("item")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, errors.New("item is required"))
		return
	}
	series, err := seriesParam(q.Get("series"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rarity, err := s.rarityParam(r.Context(), itemID, q.Get("rarity"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	entry, err := s.cache.Latest(r.Context(), series, itemID, rarity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, errors.New("no cached summary"))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// rarityParam parses raw, guessing from item_info when it is empty.
func (s *server) rarityParam(ctx context.Context, itemID, raw string) (item.Rarity, error) {
	if raw != "" {
		return item.ParseRarity(raw), nil
	}
	info, err := s.gateway.ReadItemInfo(ctx, itemID)
	if err != nil {
		return item.Unknown, err
	}
	return info.GuessRarity(), nil
}

func seriesParam(raw string) (model.SummaryKind, error) {
	if raw == "" {
		return model.SummaryLowestBIN, nil
	}
	kind := model.SummaryKind(raw)
	if kind.Table() == "" {
		return "", errors.New("series must be lowest_bin or sale")
	}
	return kind, nil
}

func intParam(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
