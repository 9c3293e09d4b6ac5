// Package metrics define las métricas Prometheus del servicio.
// Vive aparte de internal/http para que services y middlewares las usen sin ciclos.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo por método y ruta",
	}, []string{"method", "path"})

	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_rejects_total",
		Help: "Requests rechazadas por rate limit",
	})

	// Integridad
	IntegritySignTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "integrity_sign_total",
		Help: "Firmas generadas por resultado",
	}, []string{"result"}) // ok|error

	IntegrityExportRecords = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "integrity_export_records",
		Help:    "Cantidad de registros por export",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	ExportCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_cache_total",
		Help: "Lookups del cache de export por resultado",
	}, []string{"result"}) // hit|miss|error
)

// Register registra todas las métricas en reg (nil = registry default).
// Es idempotente por registry y admite varios registries a la vez.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		HTTPRequestsTotal, HTTPRequestDuration, HTTPInflight, RateLimitRejects,
		IntegritySignTotal, IntegrityExportRecords, ExportCacheTotal,
	} {
		if err := registerCollector(reg, c); err != nil {
			return err
		}
	}
	return nil
}

// Handler expone /metrics sobre g. nil = gatherer default (con las métricas
// de promhttp incluidas).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RegisterCollector registra un collector extra ignorando duplicados.
func RegisterCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return registerCollector(reg, c)
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

var (
	uuidSegmentRE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{4}-[0-9a-fA-F-]{4,}$`)
	hexSegmentRE  = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
)

// NormalizePath reemplaza segmentos dinámicos (UUIDs, hex largos, números) por :param
// para mantener acotada la cardinalidad del label "path".
func NormalizePath(p string) string {
	clean := strings.SplitN(p, "?", 2)[0]
	var out []string
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" {
			continue
		}
		if isDynamicSegment(seg) {
			out = append(out, ":param")
		} else {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return "/"
	}
	return "/" + strings.Join(out, "/")
}

func isDynamicSegment(seg string) bool {
	if len(seg) > 48 || uuidSegmentRE.MatchString(seg) || hexSegmentRE.MatchString(seg) {
		return true
	}
	_, err := strconv.Atoi(seg)
	return err == nil
}
