package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for enrichment runs.
const PushJob = "case_enrichment"

// Push sends the gatherer's metrics to a Pushgateway, grouped by run ID.
func Push(ctx context.Context, gatewayURL, runID string, g prometheus.Gatherer) error {
	err := push.New(gatewayURL, PushJob).
		Gatherer(g).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
