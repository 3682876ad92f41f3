package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WalletTransactions counts ledger applications by source and result
	// (applied, duplicate, rejected).
	WalletTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transactions_total",
		Help: "Wallet ledger transactions by source and result",
	}, []string{"source", "result"})

	// SettlementPayouts counts prize credits issued by settlement runs.
	SettlementPayouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_payouts_total",
		Help: "Settlement prize payouts by result (credited, already_credited, failed)",
	}, []string{"result"})

	// SettlementRuns counts completeAndSettle invocations.
	SettlementRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_runs_total",
		Help: "Number of settlement runs",
	})

	// PointsRefreshes counts scorecard-driven recomputation passes.
	PointsRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entry_points_refreshes_total",
		Help: "Number of contest entry points refresh passes",
	})
)

type HealthFunc func(ctx context.Context) error

// StartServer runs a small HTTP server exposing /metrics and /healthz,
// separate from the public API port.
func StartServer(port string, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if err := healthFn(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}
