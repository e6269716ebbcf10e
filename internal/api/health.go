package api

import (
	"context"
	"log"
	"time"

	"github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker interface {
	HealthCheck() echo.HandlerFunc
}

// Pinger is satisfied by the postgres pool and the redis-backed stats cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthChecker struct {
	health *health.Health
}

func MustNewHealthChecker(version string, checks ...health.Config) HealthChecker {
	h, err := health.New(health.WithComponent(health.Component{Name: "babylog", Version: version}))
	if err != nil {
		log.Fatal("failed to create health checker:", err)
	}

	for _, check := range checks {
		if err := h.Register(check); err != nil {
			log.Fatal("failed to register health check:", err)
		}
	}

	return &healthChecker{
		health: h,
	}
}

// PingCheck reports name as unavailable when p does not answer a ping. With
// skipOnErr the failure only degrades the status.
func PingCheck(name string, p Pinger, skipOnErr bool) health.Config {
	return health.Config{
		Name:      name,
		Timeout:   healthCheckTimeout,
		SkipOnErr: skipOnErr,
		Check:     p.Ping,
	}
}

func (h *healthChecker) HealthCheck() echo.HandlerFunc {
	return echo.WrapHandler(h.health.Handler())
}
