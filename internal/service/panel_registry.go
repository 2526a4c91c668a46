package service

import (
	"strconv"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PanelRegistry keeps one ReportListManager per panel identity until it has
// been idle for the configured TTL.
type PanelRegistry struct {
	mu      sync.Mutex
	ttl     time.Duration
	deps    ReportListDeps
	panels  *gocache.Cache
	metrics *MetricsService
}

// NewPanelRegistry constructs a registry creating managers with deps.
func NewPanelRegistry(deps ReportListDeps, ttl time.Duration) *PanelRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	r := &PanelRegistry{
		ttl:     ttl,
		deps:    deps,
		panels:  gocache.New(ttl, ttl/2),
		metrics: deps.Metrics,
	}
	r.panels.OnEvicted(func(string, interface{}) {
		r.metrics.SetActivePanels(r.panels.ItemCount())
	})
	return r
}

// Get returns the manager for cfg, creating it on first use.
func (r *PanelRegistry) Get(cfg PanelConfig) *ReportListManager {
	key := panelKey(cfg)

	r.mu.Lock()
	defer r.mu.Unlock()

	manager, ok := r.lookup(key)
	if !ok {
		manager = NewReportListManager(cfg, r.deps)
	}
	r.panels.Set(key, manager, r.ttl)
	r.metrics.SetActivePanels(r.panels.ItemCount())
	return manager
}

// Len returns the number of live panels.
func (r *PanelRegistry) Len() int {
	return r.panels.ItemCount()
}

func (r *PanelRegistry) lookup(key string) (*ReportListManager, bool) {
	value, ok := r.panels.Get(key)
	if !ok {
		return nil, false
	}
	manager, ok := value.(*ReportListManager)
	return manager, ok
}

func panelKey(cfg PanelConfig) string {
	parts := []string{cfg.Tag, cfg.UserID, "", ""}
	if cfg.Batch != nil {
		parts[2] = cfg.Batch.BatchID
		if end, ok := cfg.Batch.EndDateMillis(); ok {
			parts[3] = strconv.FormatInt(end, 10)
		}
	}
	return strings.Join(parts, "|")
}
