package metricsvc

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/jamii/core/notification"
	"github.com/trezcool/jamii/core/session"
	"github.com/trezcool/jamii/core/user"
)

// Metrics exposes the portal state as Prometheus metrics on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	authenticated prometheus.Gauge
	sessionsTotal *prometheus.CounterVec
	logoutsTotal  prometheus.Counter
	sessionErrors prometheus.Counter
	notifications prometheus.Gauge
	unread        prometheus.Gauge
	eventClients  prometheus.Gauge

	mu             sync.Mutex
	lastSessionErr string
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		authenticated: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_authenticated",
			Help:      "1 while a session is established, 0 otherwise",
		}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions established, by role family",
		}, []string{"family"}),
		logoutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions ended by logout",
		}),
		sessionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_errors_total",
			Help:      "Failed session operations",
		}),
		notifications: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications",
			Help:      "Notifications currently listed",
		}),
		unread: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_unread",
			Help:      "Unread notifications currently listed",
		}),
		eventClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_clients",
			Help:      "Connected live event clients",
		}),
	}
}

// ObserveSession is a session.Store subscriber.
func (m *Metrics) ObserveSession(st session.State) {
	if st.IsAuthenticated() {
		m.authenticated.Set(1)
	} else {
		m.authenticated.Set(0)
	}
	// count each failure once; subscribers run for every state change
	m.mu.Lock()
	defer m.mu.Unlock()
	if st.Err != "" && st.Err != m.lastSessionErr {
		m.sessionErrors.Inc()
	}
	m.lastSessionErr = st.Err
}

// SessionStarted is a session.Store authenticated handler.
func (m *Metrics) SessionStarted(_ context.Context, usr user.User) {
	m.sessionsTotal.WithLabelValues(usr.Family().String()).Inc()
}

// SessionEnded is a session.Store logout handler.
func (m *Metrics) SessionEnded(_ context.Context) { m.logoutsTotal.Inc() }

// ObserveNotifications is a notification.Store subscriber.
func (m *Metrics) ObserveNotifications(snap notification.Snapshot) {
	m.notifications.Set(float64(len(snap.Items)))
	m.unread.Set(float64(snap.UnreadCount))
}

func (m *Metrics) EventClientConnected()    { m.eventClients.Inc() }
func (m *Metrics) EventClientDisconnected() { m.eventClients.Dec() }

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
