package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	"github.com/bmore/mtgateway/internal/cache"
	"github.com/bmore/mtgateway/internal/gateway"
	"github.com/bmore/mtgateway/internal/lang"
	"github.com/bmore/mtgateway/internal/provider"
)

const gib = 1 << 30

type HealthHandler struct {
	router    *provider.Router
	cache     *cache.Cache
	startedAt time.Time
	log       *zap.Logger
}

func NewHealthHandler(gc *gateway.Context) *HealthHandler {
	return &HealthHandler{
		router:    gc.Router,
		cache:     gc.Cache,
		startedAt: gc.StartedAt,
		log:       gc.Log.Named("api"),
	}
}

type memoryUsage struct {
	Total     float64 `json:"total"`
	Available float64 `json:"available"`
	Used      float64 `json:"used"`
	Percent   float64 `json:"percent"`
}

type healthResponse struct {
	Status         string      `json:"status"`
	Provider       string      `json:"provider"`
	AvailablePairs []lang.Pair `json:"availablePairs"`
	MemoryUsage    memoryUsage `json:"memoryUsage"`
	CacheConnected bool        `json:"cacheConnected"`
}

// memory reports host memory in GiB. Failures are logged and reported as zeros.
func (h *HealthHandler) memory(ctx context.Context) memoryUsage {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		h.log.Warn("read memory stats", zap.Error(err))
		return memoryUsage{}
	}
	return memoryUsage{
		Total:     float64(vm.Total) / gib,
		Available: float64(vm.Available) / gib,
		Used:      float64(vm.Used) / gib,
		Percent:   vm.UsedPercent,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jsonResponse(w, healthResponse{
		Status:         "healthy",
		Provider:       h.router.Name(),
		AvailablePairs: h.router.Pairs(),
		MemoryUsage:    h.memory(ctx),
		CacheConnected: h.cache.Connected(ctx),
	}, http.StatusOK)
}

type statsResponse struct {
	Provider       string      `json:"provider"`
	UptimeSeconds  float64     `json:"uptimeSeconds"`
	CacheConnected bool        `json:"cacheConnected"`
	CacheTTL       float64     `json:"cacheTtlSeconds"`
	MemoryUsage    memoryUsage `json:"memoryUsage"`
	CPUPercent     float64     `json:"cpuPercent"`
}

// Stats handles GET /stats
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := statsResponse{
		Provider:       h.router.Name(),
		UptimeSeconds:  time.Since(h.startedAt).Seconds(),
		CacheConnected: h.cache.Connected(ctx),
		CacheTTL:       h.cache.TTL().Seconds(),
		MemoryUsage:    h.memory(ctx),
	}
	// A zero interval compares against the previous call instead of sleeping.
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		resp.CPUPercent = pct[0]
	}
	jsonResponse(w, resp, http.StatusOK)
}
