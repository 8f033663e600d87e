package system

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/arth-1/socialpost/internal/platform/observability"
	"github.com/arth-1/socialpost/internal/utils"
)

// HostStats is the host section of the health report.
type HostStats struct {
	MemoryTotal       uint64  `json:"memoryTotal"`
	MemoryUsed        uint64  `json:"memoryUsed"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	CPUPercent        float64 `json:"cpuPercent"`
	CPUCount          int     `json:"cpuCount"`
}

// HealthReport is the body of GET /api/health.
type HealthReport struct {
	Status     string             `json:"status"`
	Version    string             `json:"version"`
	Uptime     string             `json:"uptime"`
	Goroutines int                `json:"goroutines"`
	Host       *HostStats         `json:"host,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// HostProbe samples host resources.
type HostProbe func(ctx context.Context) (*HostStats, error)

// Service 健康检查接口
type Service struct {
	version string
	started time.Time
	probe   HostProbe
	logger  *utils.Logger
}

func NewService(version string, probe HostProbe, logger *utils.Logger) *Service {
	if probe == nil {
		probe = SampleHost
	}
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Service{version: version, started: time.Now(), probe: probe, logger: logger}
}

func (s *Service) Register(api *gin.RouterGroup) {
	api.GET("/health", s.handleHealth)
}

func (s *Service) handleHealth(c *gin.Context) {
	report := HealthReport{
		Status:     "ok",
		Version:    s.version,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Metrics:    observability.Snapshot(),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	host, err := s.probe(ctx)
	if err != nil {
		s.logger.WarnTag("HTTP", "采集主机信息失败: %v", err)
		report.Status = "degraded"
	} else {
		report.Host = host
	}
	c.JSON(http.StatusOK, report)
}

// SampleHost reads memory and a non-blocking cpu sample through gopsutil.
func SampleHost(ctx context.Context) (*HostStats, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	stats := &HostStats{
		MemoryTotal:       vm.Total,
		MemoryUsed:        vm.Used,
		MemoryUsedPercent: vm.UsedPercent,
		CPUCount:          runtime.NumCPU(),
	}
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	return stats, nil
}
