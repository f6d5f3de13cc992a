package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nexusfeed/nexusfeed/internal/cache"
	"github.com/nexusfeed/nexusfeed/internal/query"
	"github.com/nexusfeed/nexusfeed/internal/scheduler"
	"github.com/nexusfeed/nexusfeed/internal/version"
)

type handlers struct {
	svc    *query.Service
	sched  *scheduler.Scheduler
	cache  *cache.Cache
	logger *slog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sourceSymbol reads the source and symbol query parameters. Symbols carry
// a slash (BTC/USDT) so they travel as query values, not path segments.
func sourceSymbol(r *http.Request) (source, symbol string, ok bool) {
	source = r.URL.Query().Get("source")
	symbol = r.URL.Query().Get("symbol")
	return source, symbol, source != "" && symbol != ""
}

func (h *handlers) triggerFetch(w http.ResponseWriter, r *http.Request) {
	source, symbol, ok := sourceSymbol(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "source and symbol are required")
		return
	}

	rec, err := h.svc.TriggerFetch(r.Context(), source, symbol)
	if err != nil {
		if errors.Is(err, query.ErrUnknownSource) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Warn("trigger fetch failed", "source", source, "symbol", symbol, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) marketData(w http.ResponseWriter, r *http.Request) {
	source, symbol, ok := sourceSymbol(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "source and symbol are required")
		return
	}

	result, err := h.svc.MarketData(r.Context(), source, symbol)
	if err != nil {
		if errors.Is(err, query.ErrUnknownSource) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("market data query failed", "source", source, "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) configuredSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": h.svc.ConfiguredSources()})
}

func (h *handlers) availableSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sources": h.svc.AvailableSources()})
}

func (h *handlers) symbols(w http.ResponseWriter, r *http.Request) {
	source := r.PathValue("source")
	q := r.URL.Query()

	if q.Get("all") == "true" {
		groups, err := h.svc.AllSymbols(r.Context(), source)
		if err != nil {
			h.logger.Warn("symbol listing failed", "source", source, "err", err)
			writeError(w, symbolsStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"source": source, "types": groups})
		return
	}

	instrumentType := q.Get("type")
	symbols, err := h.svc.Symbols(r.Context(), source, instrumentType)
	if err != nil {
		h.logger.Warn("symbol listing failed", "source", source, "type", instrumentType, "err", err)
		writeError(w, symbolsStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":  source,
		"count":   len(symbols),
		"symbols": symbols,
	})
}

func symbolsStatus(err error) int {
	if errors.Is(err, query.ErrNoDirectory) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (h *handlers) latestPrice(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot cache not configured")
		return
	}

	source, symbol, ok := sourceSymbol(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "source and symbol are required")
		return
	}

	rec, err := h.cache.GetTicker(r.Context(), source, symbol)
	if err != nil {
		h.logger.Error("cache read failed", "source", source, "symbol", symbol, "err", err)
		writeError(w, http.StatusInternalServerError, "cache read failed")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "no data for target")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": version.String(),
	}
	if h.sched != nil {
		resp["targets"] = h.sched.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}
