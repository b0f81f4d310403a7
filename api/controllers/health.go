package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dishpatch/merchant-backend/api/responses"
	"github.com/dishpatch/merchant-backend/pkg/bigquery"
	"github.com/dishpatch/merchant-backend/pkg/config"
	"github.com/dishpatch/merchant-backend/pkg/db"
	pkgerrors "github.com/dishpatch/merchant-backend/pkg/errors"
	"github.com/dishpatch/merchant-backend/pkg/logger"
	"github.com/dishpatch/merchant-backend/pkg/redis"
	"github.com/dishpatch/merchant-backend/pkg/storage/r2"
)

const readyCheckTimeout = 3 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dishpatch-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each backing dependency before reporting ready.
func HealthReady(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	storageP r2.Pinger,
	bigqueryP bigquery.Pinger,
) http.HandlerFunc {
	checks := []struct {
		name   string
		pinger interface {
			Ping(ctx context.Context) error
		}
	}{
		{name: "postgres", pinger: dbP},
		{name: "redis", pinger: redisP},
		{name: "object_storage", pinger: storageP},
		{name: "bigquery", pinger: bigqueryP},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dishpatch-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for _, check := range checks {
			if check.pinger == nil {
				status[check.name] = "skipped"
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				status[check.name] = "down"
				healthy = false
				if logg != nil {
					logg.Error(logg.WithFields(ctx, map[string]any{"component": check.name}), "health.ready.check_failed", err)
				}
				continue
			}
			status[check.name] = "up"
		}

		if !healthy {
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "components": status})
	}
}
