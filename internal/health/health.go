// Package health tracks whether the backend services answer and publishes
// the result on the gRPC health service.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Prober checks each backend by name. Any HTTP answer counts as up; only a
// failed round trip marks the service down.
type Prober struct {
	hs      *health.Server
	targets map[string]string
	hc      *http.Client

	mu   sync.RWMutex
	last map[string]healthpb.HealthCheckResponse_ServingStatus
}

func NewProber(hs *health.Server, targets map[string]string, timeout time.Duration) *Prober {
	p := &Prober{
		hs:      hs,
		targets: targets,
		hc:      &http.Client{Timeout: timeout},
		last:    make(map[string]healthpb.HealthCheckResponse_ServingStatus),
	}
	for name := range targets {
		p.last[name] = healthpb.HealthCheckResponse_UNKNOWN
		hs.SetServingStatus(name, healthpb.HealthCheckResponse_UNKNOWN)
	}
	return p
}

func (p *Prober) check(ctx context.Context, base string) healthpb.HealthCheckResponse_ServingStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	resp, err := p.hc.Do(req)
	if err != nil {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	resp.Body.Close()
	return healthpb.HealthCheckResponse_SERVING
}

// Probe checks every target at once and updates the health server. The
// overall ("") status is SERVING only when every backend is.
func (p *Prober) Probe(ctx context.Context) {
	names := make([]string, 0, len(p.targets))
	for name := range p.targets {
		names = append(names, name)
	}
	results := make([]healthpb.HealthCheckResponse_ServingStatus, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = p.check(ctx, p.targets[name])
			return nil
		})
	}
	_ = g.Wait()

	overall := healthpb.HealthCheckResponse_SERVING
	p.mu.Lock()
	for i, name := range names {
		p.last[name] = results[i]
		p.hs.SetServingStatus(name, results[i])
		if results[i] != healthpb.HealthCheckResponse_SERVING {
			overall = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	p.mu.Unlock()
	p.hs.SetServingStatus("", overall)
}

type Report struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Report is the last probe result. Status is "ok" when every backend was
// up and "degraded" otherwise.
func (p *Prober) Report() Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r := Report{Status: "ok", Services: make(map[string]string, len(p.last))}
	for name, st := range p.last {
		r.Services[name] = st.String()
		if st != healthpb.HealthCheckResponse_SERVING {
			r.Status = "degraded"
		}
	}
	return r
}

// Names lists the probed services in a stable order.
func (p *Prober) Names() []string {
	names := make([]string, 0, len(p.targets))
	for name := range p.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
