package service

import (
	"testing"

	"parterre/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// Every release cause counts under its own label, so reaper reclamations can
// be graphed apart from payment failures and confirm timeouts.
func TestReleaseReasonsCountedSeparately(t *testing.T) {
	reasons := []string{ReleaseExpired, ReleasePaymentFailed, ReleaseConfirmTimeout}

	seen := make(map[string]bool)
	for _, reason := range reasons {
		assert.False(t, seen[reason], "reason %q reused", reason)
		seen[reason] = true

		before := testutil.ToFloat64(metrics.HoldsReleasedTotal.WithLabelValues(reason))
		metrics.HoldsReleasedTotal.WithLabelValues(reason).Inc()
		assert.Equal(t, before+1, testutil.ToFloat64(metrics.HoldsReleasedTotal.WithLabelValues(reason)))
	}
}
