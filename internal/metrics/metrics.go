package metrics

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const (
	namespace = "crypto_assistant"
	subsystem = "telegram_bot"
)

// Store persists counter values between restarts.
type Store interface {
	GetMetric(metricName string) (float64, error)
	SaveMetric(metricName string, value float64) error
	SaveMetricWithLabels(metricName, labelKey, labelValue string, value float64) error
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

type BotMetrics struct {
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	AlertsTriggered    prometheus.Counter
	ChannelsCount      prometheus.Gauge
	ChannelNames       *prometheus.CounterVec
	MessagesPerChannel *prometheus.CounterVec
	Intents            *prometheus.CounterVec
	UpstreamRequests   *prometheus.CounterVec
	UpstreamLatency    *prometheus.HistogramVec

	mu          sync.Mutex
	channelsSet map[int64]string
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

// New creates the bot metrics and registers them with reg.
func New(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		CommandsProcessed: counter("commands_processed", "The total number of processed commands"),
		MessagesHandled:   counter("messages_handled", "The total number of handled messages"),
		AlertsTriggered:   counter("alerts_triggered", "The total number of price alerts delivered"),
		ChannelsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "channels_count",
			Help:      "The current number of unique channels the bot is operating in",
		}),
		ChannelNames:       counterVec("channel_names", "Tracks channels the bot has interacted with", "chat_id", "chat_name"),
		MessagesPerChannel: counterVec("messages_per_channel", "The total number of messages handled per channel", "chat_id", "chat_name"),
		Intents:            counterVec("intents_total", "Parsed text lines by intent kind", "kind"),
		UpstreamRequests:   counterVec("upstream_requests_total", "Market data requests by provider, operation and result", "provider", "op", "result"),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_request_seconds",
			Help:      "Market data request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		channelsSet: make(map[int64]string),
	}

	reg.MustRegister(
		m.CommandsProcessed,
		m.MessagesHandled,
		m.AlertsTriggered,
		m.ChannelsCount,
		m.ChannelNames,
		m.MessagesPerChannel,
		m.Intents,
		m.UpstreamRequests,
		m.UpstreamLatency,
	)
	return m
}

// ObserveMessage counts a handled message and records its channel.
func (m *BotMetrics) ObserveMessage(chatID int64, chatName string) {
	if chatName == "" {
		chatName = fmt.Sprintf("%s-%d", "PrivateChat", chatID)
	}
	id := strconv.FormatInt(chatID, 10)

	m.MessagesHandled.Inc()
	m.MessagesPerChannel.WithLabelValues(id, chatName).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.channelsSet[chatID]; !exists {
		m.channelsSet[chatID] = chatName
		m.ChannelsCount.Set(float64(len(m.channelsSet)))
		m.ChannelNames.WithLabelValues(id, chatName).Inc()
	}
}

// Load restores persisted values; missing rows count as zero.
func (m *BotMetrics) Load(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, c := range map[string]prometheus.Counter{
		"commands_processed": m.CommandsProcessed,
		"messages_handled":   m.MessagesHandled,
		"alerts_triggered":   m.AlertsTriggered,
	} {
		value, err := store.GetMetric(name)
		if err != nil {
			log.WithError(err).Warnf("failed to load metric %s", name)
			continue
		}
		c.Add(value)
	}

	loadLabeled(store, "channel_names", func(chatIDStr, chatName string, _ float64) {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			log.Warnf("failed to parse chatID %s: %v", chatIDStr, err)
			return
		}
		m.ChannelNames.WithLabelValues(chatIDStr, chatName).Add(1)
		m.channelsSet[chatID] = chatName
	})
	m.ChannelsCount.Set(float64(len(m.channelsSet)))

	loadLabeled(store, "messages_per_channel", func(chatID, chatName string, value float64) {
		m.MessagesPerChannel.WithLabelValues(chatID, chatName).Add(value)
	})
	loadLabeled(store, "intents_total", func(kind, _ string, value float64) {
		m.Intents.WithLabelValues(kind).Add(value)
	})

	log.Debug("metrics loaded from database")
}

func loadLabeled(store Store, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := store.GetMetricsWithLabels(metricName)
	if err != nil {
		log.WithError(err).Warnf("failed to load metric %s", metricName)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// Save writes the persisted subset of metrics to store.
func (m *BotMetrics) Save(store Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	keep(store.SaveMetric("commands_processed", Value(m.CommandsProcessed)))
	keep(store.SaveMetric("messages_handled", Value(m.MessagesHandled)))
	keep(store.SaveMetric("alerts_triggered", Value(m.AlertsTriggered)))
	keep(store.SaveMetric("channels_count", float64(len(m.channelsSet))))

	for chatID, chatName := range m.channelsSet {
		keep(store.SaveMetricWithLabels("channel_names", strconv.FormatInt(chatID, 10), chatName, 1))
	}
	for _, metric := range collect(m.MessagesPerChannel) {
		labels := labelMap(metric)
		keep(store.SaveMetricWithLabels("messages_per_channel", labels["chat_id"], labels["chat_name"], metric.GetCounter().GetValue()))
	}
	for _, metric := range collect(m.Intents) {
		keep(store.SaveMetricWithLabels("intents_total", labelMap(metric)["kind"], "", metric.GetCounter().GetValue()))
	}

	if firstErr == nil {
		log.Debug("metrics saved to database")
	}
	return firstErr
}

// Value reads the current value of a single counter or gauge.
func Value(c prometheus.Collector) float64 {
	metrics := collect(c)
	if len(metrics) == 0 {
		return 0
	}
	if metrics[0].Counter != nil {
		return metrics[0].Counter.GetValue()
	}
	return metrics[0].GetGauge().GetValue()
}

func collect(c prometheus.Collector) []*dto.Metric {
	ch := make(chan prometheus.Metric)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var out []*dto.Metric
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err != nil {
			log.WithError(err).Warn("failed to read metric")
			continue
		}
		out = append(out, pb)
	}
	return out
}

func labelMap(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, label := range m.GetLabel() {
		out[label.GetName()] = label.GetValue()
	}
	return out
}
