package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
)

const readinessTimeout = 2 * time.Second

// Pinger is a backing service checked by GET /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

type readinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// readiness pings every dependency concurrently and answers 503 when any of
// them fails
func readiness(checks map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := readinessResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		var (
			mu sync.Mutex
			g  errgroup.Group
		)
		for _, name := range names {
			name := name
			g.Go(func() error {
				result := "ok"
				if err := checks[name].Ping(ctx); err != nil {
					result = err.Error()
					observability.LoggerFromContext(ctx).Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
				}
				mu.Lock()
				resp.Checks[name] = result
				if result != "ok" {
					resp.Status = "unavailable"
				}
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		status := http.StatusOK
		if resp.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
