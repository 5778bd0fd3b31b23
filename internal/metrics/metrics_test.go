package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/conflict-radar/backend/internal/metrics"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.MessageDone("emitted", 10*time.Millisecond)
	m.MessageDone("emitted", 20*time.Millisecond)
	m.EventStored(true)
	m.EventStored(false)
	m.EventFailed("persist")
	m.GeocodeTier("memory")
	m.GeocodeCall("resolved")
	m.Notification("duplicate")
	m.Registry(4)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Messages.WithLabelValues("emitted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("located")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("locationless")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.EventFailures.WithLabelValues("persist")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeLookups.WithLabelValues("memory")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeExternal.WithLabelValues("resolved")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("duplicate")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.RegistrySize))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.MessageDone("filtered", time.Millisecond)
		m.EventStored(true)
		m.EventFailed("publish")
		m.GeocodeTier("external")
		m.GeocodeCall("error")
		m.Notification("received")
		m.Registry(1)
	})
}
