package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(validationRejections.WithLabelValues("weight_range"))
	RecordValidationRejection("weight_range")
	require.Equal(t, before+1, testutil.ToFloat64(validationRejections.WithLabelValues("weight_range")))

	RecordValidationRejection("")
	require.GreaterOrEqual(t, testutil.ToFloat64(validationRejections.WithLabelValues("unknown")), 1.0)

	before = testutil.ToFloat64(storageErrors.WithLabelValues("fleet.set"))
	RecordStorageError("fleet.set")
	require.Equal(t, before+1, testutil.ToFloat64(storageErrors.WithLabelValues("fleet.set")))
}

func TestActiveSessionsGauge(t *testing.T) {
	SetActiveSessions(3)
	require.Equal(t, 3.0, testutil.ToFloat64(activeSessions))
	SetActiveSessions(0)
	require.Equal(t, 0.0, testutil.ToFloat64(activeSessions))
}
