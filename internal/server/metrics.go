package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const unmatchedRoute = "unmatched"

// Metrics holds the Prometheus collectors exposed on /metrics.
type Metrics struct {
	registry       *prometheus.Registry
	requests       *prometheus.CounterVec
	sectionChanges *prometheus.CounterVec
}

// NewMetrics registers the server collectors on registry, creating a private registry
// with Go runtime collectors when registry is nil.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	metrics := &Metrics{
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fithon",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		sectionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fithon",
			Name:      "section_changes_total",
			Help:      "Section mutations accepted, by operation.",
		}, []string{"operation"}),
	}
	for _, collector := range []prometheus.Collector{metrics.requests, metrics.sectionChanges} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

func (m *Metrics) observeSectionChange(operation string) {
	m.sectionChanges.WithLabelValues(operation).Inc()
}
