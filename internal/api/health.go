package api

import (
	"github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
)

type HealthChecker interface {
	HealthCheck() echo.HandlerFunc
}

type healthChecker struct {
	health *health.Health
}

// MustNewHealthChecker panics when the checker cannot be built or a check
// cannot be registered; health wiring is a startup concern, not a runtime one.
func MustNewHealthChecker(checks ...health.Config) HealthChecker {
	h, err := health.New(health.WithComponent(health.Component{Name: "rollcall", Version: "v0.1.0"}))
	if err != nil {
		panic(err)
	}

	for _, check := range checks {
		if err := h.Register(check); err != nil {
			panic(err)
		}
	}

	return &healthChecker{
		health: h,
	}
}

func (h *healthChecker) HealthCheck() echo.HandlerFunc {
	return echo.WrapHandler(h.health.Handler())
}
