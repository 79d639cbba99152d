package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Health component names
const (
	ComponentOwnership = "ownership"
	ComponentSlurmctld = "slurmctld"
	ComponentJournal   = "journal"
)

// HealthStatus is the body served by the health and readiness endpoints
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy", "unhealthy", "ready", "not_ready"
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

// ComponentHealth tracks the health of a single component
type ComponentHealth struct {
	Name    string
	Healthy bool
	Message string
	Updated time.Time
}

// HealthChecker keeps the latest health report of each component
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	critical   []string
	startTime  time.Time
	version    string
}

var healthChecker = newHealthChecker()

func newHealthChecker() *HealthChecker {
	return &HealthChecker{
		components: make(map[string]ComponentHealth),
		critical:   []string{ComponentOwnership, ComponentSlurmctld},
		startTime:  time.Now(),
	}
}

// SetVersion sets the version string reported by the endpoints
func SetVersion(version string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.version = version
}

// UpdateComponent records the latest health of a component
func UpdateComponent(name string, healthy bool, message string) {
	healthChecker.mu.Lock()
	defer healthChecker.mu.Unlock()
	healthChecker.components[name] = ComponentHealth{
		Name:    name,
		Healthy: healthy,
		Message: message,
		Updated: time.Now(),
	}
}

// GetHealth reports unhealthy if any registered component is unhealthy
func GetHealth() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now(),
		Components: make(map[string]string),
		Version:    healthChecker.version,
		Uptime:     time.Since(healthChecker.startTime).String(),
	}
	for name, comp := range healthChecker.components {
		if comp.Healthy {
			status.Components[name] = "healthy"
			continue
		}
		status.Status = "unhealthy"
		status.Components[name] = "unhealthy: " + comp.Message
	}
	return status
}

// GetReadiness reports ready once every critical component reported healthy
func GetReadiness() HealthStatus {
	healthChecker.mu.RLock()
	defer healthChecker.mu.RUnlock()

	status := HealthStatus{
		Status:     "ready",
		Timestamp:  time.Now(),
		Components: make(map[string]string),
		Version:    healthChecker.version,
		Uptime:     time.Since(healthChecker.startTime).String(),
	}
	for _, name := range healthChecker.critical {
		comp, ok := healthChecker.components[name]
		switch {
		case !ok:
			status.Status = "not_ready"
			status.Message = "waiting for " + name
			status.Components[name] = "not registered"
		case !comp.Healthy:
			status.Status = "not_ready"
			status.Message = "waiting for " + name
			status.Components[name] = "not ready: " + comp.Message
		default:
			status.Components[name] = "ready"
		}
	}
	return status
}

// HealthHandler serves GetHealth, 503 when unhealthy
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()
		code := http.StatusOK
		if health.Status != "healthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health)
	}
}

// ReadyHandler serves GetReadiness, 503 when not ready
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()
		code := http.StatusOK
		if readiness.Status != "ready" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, readiness)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
