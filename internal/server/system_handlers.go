package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/aristath/stacktrack/internal/database"
	"github.com/aristath/stacktrack/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// SubscriberCounter reports connected live-stream clients
type SubscriberCounter interface {
	SubscriberCount(sessionID string) int
}

// SystemHandlers handles system monitoring and operations endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	startupTime time.Time
	databases   map[string]*database.DB
	subscribers SubscriberCounter
	jobs        map[string]scheduler.Job

	mu      sync.Mutex
	running map[string]bool
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status          string                     `json:"status"`
	UptimeSeconds   int64                      `json:"uptime_seconds"`
	CPUPercent      float64                    `json:"cpu_percent"`
	MemoryPercent   float64                    `json:"memory_percent"`
	Goroutines      int                        `json:"goroutines"`
	LiveSubscribers int                        `json:"live_subscribers"`
	Databases       map[string]*database.Stats `json:"databases"`
	LastChecked     string                     `json:"last_checked"`
}

// DiskUsageResponse is the body of GET /api/system/disk
type DiskUsageResponse struct {
	DataDirMB   float64 `json:"data_dir_mb"`
	BackupsMB   float64 `json:"backups_mb"`
	FreeGB      float64 `json:"free_gb"`
	UsedPercent float64 `json:"used_percent"`
}

// JobStatus describes a registered job
type JobStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	subscribers SubscriberCounter,
	jobs map[string]scheduler.Job,
) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		dataDir:     dataDir,
		startupTime: time.Now(),
		databases:   databases,
		subscribers: subscribers,
		jobs:        jobs,
		running:     make(map[string]bool),
	}
}

// HandleSystemStatus returns process, host and database status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startupTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		Databases:     h.collectDatabaseStats(),
		LastChecked:   time.Now().Format(time.RFC3339),
	}
	if h.subscribers != nil {
		response.LiveSubscribers = h.subscribers.SubscriberCount("")
	}
	if len(response.Databases) < len(h.databases) {
		response.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// HandleDatabaseStats returns per-database statistics
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")
	writeJSON(w, http.StatusOK, h.collectDatabaseStats(), h.log)
}

// HandleDiskUsage returns data directory and volume usage
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	response := DiskUsageResponse{
		DataDirMB: h.getDirSize(h.dataDir),
		BackupsMB: h.getDirSize(filepath.Join(h.dataDir, "backups")),
	}

	usage, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		response.FreeGB = float64(usage.Free) / 1e9
		response.UsedPercent = usage.UsedPercent
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// HandleListJobs lists the registered jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	jobs := make([]JobStatus, 0, len(h.jobs))
	for name := range h.jobs {
		jobs = append(jobs, JobStatus{Name: name, Running: h.running[name]})
	}
	h.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	writeJSON(w, http.StatusOK, jobs, h.log)
}

// HandleTriggerJob runs a registered job in the background
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	job, ok := h.jobs[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not registered: " + name}, h.log)
		return
	}

	h.mu.Lock()
	if h.running[name] {
		h.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Job already running: " + name}, h.log)
		return
	}
	h.running[name] = true
	h.mu.Unlock()

	h.log.Info().Str("job", name).Msg("Manual job run triggered")

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.running, name)
			h.mu.Unlock()
		}()

		if err := job.Run(); err != nil {
			h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
			return
		}
		h.log.Info().Str("job", name).Msg("Manual job run completed")
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": name + " triggered successfully",
	}, h.log)
}

func (h *SystemHandlers) collectDatabaseStats() map[string]*database.Stats {
	stats := make(map[string]*database.Stats, len(h.databases))
	for name, db := range h.databases {
		if db == nil {
			continue
		}
		s, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}
		stats[name] = s
	}
	return stats
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over
// 100ms to keep the endpoint fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})
	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
