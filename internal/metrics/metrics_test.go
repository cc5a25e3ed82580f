package metrics_test

import (
	"path/filepath"
	"testing"

	"crypto-assistant-bot/internal/database"
	"crypto-assistant-bot/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveMessageCountsChannelsOnce(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	m.ObserveMessage(1, "traders")
	m.ObserveMessage(1, "traders")
	m.ObserveMessage(7, "")

	require.Equal(t, 3.0, testutil.ToFloat64(m.MessagesHandled))
	require.Equal(t, 2.0, testutil.ToFloat64(m.ChannelsCount))
	require.Equal(t, 2.0, testutil.ToFloat64(m.MessagesPerChannel.WithLabelValues("1", "traders")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.MessagesPerChannel.WithLabelValues("7", "PrivateChat-7")))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := database.Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	defer store.Close()

	before := metrics.New(prometheus.NewRegistry())
	before.ObserveMessage(1, "traders")
	before.ObserveMessage(2, "whales")
	before.CommandsProcessed.Add(5)
	before.AlertsTriggered.Inc()
	before.Intents.WithLabelValues("convert").Add(3)
	require.NoError(t, before.Save(store))

	after := metrics.New(prometheus.NewRegistry())
	after.Load(store)

	require.Equal(t, 5.0, metrics.Value(after.CommandsProcessed))
	require.Equal(t, 2.0, metrics.Value(after.MessagesHandled))
	require.Equal(t, 1.0, metrics.Value(after.AlertsTriggered))
	require.Equal(t, 2.0, metrics.Value(after.ChannelsCount))
	require.Equal(t, 3.0, testutil.ToFloat64(after.Intents.WithLabelValues("convert")))
	require.Equal(t, 1.0, testutil.ToFloat64(after.MessagesPerChannel.WithLabelValues("2", "whales")))
}
