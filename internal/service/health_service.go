package service

import (
	"context"
	"os"
	"time"
)

type HealthStatus string

const (
	StatusOK          HealthStatus = "ok"
	StatusDegraded    HealthStatus = "degraded"
	StatusUnavailable HealthStatus = "unavailable"
)

type HealthCheckResponse struct {
	Status    HealthStatus      `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

type HealthService struct {
	db     Pinger
	tmpDir string
}

// NewHealthService checks db reachability and that tmpDir (the database
// directory, or the OS temp dir when empty) accepts writes.
func NewHealthService(db Pinger, tmpDir string) *HealthService {
	return &HealthService{
		db:     db,
		tmpDir: tmpDir,
	}
}

func (s *HealthService) CheckHealth(ctx context.Context) HealthCheckResponse {
	checks := make(map[string]string)
	aggregated := StatusOK

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		aggregated = StatusUnavailable
	} else {
		checks["database"] = "ok"
	}

	if err := s.checkDiskWritable(); err != nil {
		checks["disk"] = "error: " + err.Error()
		if aggregated == StatusOK {
			aggregated = StatusDegraded
		}
	} else {
		checks["disk"] = "ok"
	}

	return HealthCheckResponse{
		Status:    aggregated,
		Checks:    checks,
		Timestamp: time.Now(),
	}
}

func (s *HealthService) checkDiskWritable() error {
	f, err := os.CreateTemp(s.tmpDir, "healthcheck")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	return f.Close()
}
