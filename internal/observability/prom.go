package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// Store
	StoreOpDuration  *prometheus.HistogramVec
	StoreErrorsTotal *prometheus.CounterVec

	// Admission
	AdmissionsTotal      *prometheus.CounterVec
	AdmissionScanSkipped prometheus.Counter

	// Newsletter
	NewsletterResults  *prometheus.CounterVec
	NewsletterDuration prometheus.Histogram
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confreg",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "confreg",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "confreg",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		StoreOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "confreg",
				Subsystem: "store",
				Name:      "op_duration_seconds",
				Help:      "Key/value store operation latency by logical op.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
			},
			[]string{"backend", "op", "status"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confreg",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Store errors by backend, logical op and class.",
			},
			[]string{"backend", "op", "class"},
		),
		AdmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confreg",
				Subsystem: "admission",
				Name:      "results_total",
				Help:      "Admission outcomes.",
			},
			[]string{"result"}, // result=admitted|validation|duplicate|capacity|storage
		),
		AdmissionScanSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "confreg",
				Subsystem: "admission",
				Name:      "scan_failures_total",
				Help:      "Admissions that proceeded to commit without duplicate/capacity checks because the scan failed.",
			},
		),
		NewsletterResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "confreg",
				Subsystem: "newsletter",
				Name:      "results_total",
				Help:      "Newsletter forwarding outcomes.",
			},
			[]string{"result"}, // result=subscribed|already_subscribed|skipped|failed
		),
		NewsletterDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "confreg",
				Subsystem: "newsletter",
				Name:      "duration_seconds",
				Help:      "Latency of newsletter subscribe calls.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
			},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.StoreOpDuration, p.StoreErrorsTotal,
		p.AdmissionsTotal, p.AdmissionScanSkipped,
		p.NewsletterResults, p.NewsletterDuration,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

func (p *Prom) IncAdmission(result string) {
	if p == nil {
		return
	}
	p.AdmissionsTotal.WithLabelValues(result).Inc()
}

func (p *Prom) IncScanSkipped() {
	if p == nil {
		return
	}
	p.AdmissionScanSkipped.Inc()
}

func (p *Prom) ObserveNewsletter(result string, d time.Duration) {
	if p == nil {
		return
	}
	p.NewsletterResults.WithLabelValues(result).Inc()
	p.NewsletterDuration.Observe(d.Seconds())
}
