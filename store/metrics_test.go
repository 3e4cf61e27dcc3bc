package store

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.arnest.dev/scan/metrics"
)

func TestCollectorsTrackStoreActivity(t *testing.T) {
	var s = newTestStore(t)
	var ctx = context.Background()

	var subs = gaugeValue(t, metrics.SubscriptionsActive)
	var commits = counterValue(t, metrics.TransactionsTotal.WithLabelValues(metrics.Ok))
	var notifications = counterValue(t, metrics.TableNotificationsTotal.WithLabelValues(string(SavedProductsTable)))

	var stream = mustWatch(t, s)
	require.Equal(t, subs+1, gaugeValue(t, metrics.SubscriptionsActive))

	require.NoError(t, s.Insert(ctx, soap))
	require.NoError(t, s.DeleteByBarcode(ctx, "missing"))

	require.Equal(t, commits+2, counterValue(t, metrics.TransactionsTotal.WithLabelValues(metrics.Ok)))
	// Only the insert wrote a row, and only it notified.
	require.Equal(t, notifications+1,
		counterValue(t, metrics.TableNotificationsTotal.WithLabelValues(string(SavedProductsTable))))

	stream.Close()
	require.Equal(t, subs, gaugeValue(t, metrics.SubscriptionsActive))
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
