package server

import (
	"net/http"
	"runtime"
	"time"

	"pawLingo/core"
	"pawLingo/processors"
	"pawLingo/storage"
)

// MonitoringHandlers 监控相关的HTTP处理器
type MonitoringHandlers struct {
	interpreter *processors.Interpreter
	store       storage.MetadataStore
	index       storage.InterpretationIndex
	startedAt   time.Time
}

func NewMonitoringHandlers(interpreter *processors.Interpreter, store storage.MetadataStore, index storage.InterpretationIndex) *MonitoringHandlers {
	return &MonitoringHandlers{
		interpreter: interpreter,
		store:       store,
		index:       index,
		startedAt:   time.Now(),
	}
}

// HealthCheckHandler 健康检查处理器
func (h *MonitoringHandlers) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"interpreter":    "active",
		"metadata_store": "active",
		"vector_index":   "active",
	}
	status := "healthy"

	if h.interpreter == nil || h.interpreter.Catalog() == nil {
		services["interpreter"] = "inactive"
		status = "degraded"
	}
	if h.store == nil {
		services["metadata_store"] = "inactive"
		status = "degraded"
	}
	if h.index == nil {
		services["vector_index"] = "inactive"
		status = "degraded"
	}

	core.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"services":  services,
	})
}

// StatsHandler 统计信息处理器
func (h *MonitoringHandlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	catalogSize := 0
	if h.interpreter != nil && h.interpreter.Catalog() != nil {
		catalogSize = h.interpreter.Catalog().Len()
	}

	stats := map[string]any{
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"catalog_size":   catalogSize,
		"memory": map[string]any{
			"alloc":        m.Alloc,
			"total_alloc":  m.TotalAlloc,
			"sys":          m.Sys,
			"num_gc":       m.NumGC,
			"heap_objects": m.HeapObjects,
		},
		"goroutines": runtime.NumGoroutine(),
	}
	core.WriteJSON(w, http.StatusOK, stats)
}
