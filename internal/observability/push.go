package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the metrics gathered by g to a Prometheus push gateway. Batch
// runs end before a scraper would see them, so the gateway keeps the last
// run's values under the given job and run ID.
func Push(ctx context.Context, gatewayURL, job, runID string, g prometheus.Gatherer) error {
	err := push.New(gatewayURL, job).
		Gatherer(g).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
