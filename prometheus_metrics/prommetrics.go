package prometheus_metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultPort = "9410"

// PrometheusMetrics groups the cronkeep collectors. A nil *PrometheusMetrics
// is valid and records nothing.
type PrometheusMetrics struct {
	CrontabReadsCounter      *prometheus.CounterVec
	CrontabSavesCounter      *prometheus.CounterVec
	JobMutationsCounter      *prometheus.CounterVec
	JobsGauge                *prometheus.GaugeVec
	CommandDurationHistogram *prometheus.HistogramVec
	registry                 *prometheus.Registry
	listenAddr               string
	srv                      *http.Server
}

func New(promListenAddr string) *PrometheusMetrics {
	pm := PrometheusMetrics{}

	pm.listenAddr = promListenAddr
	pm.registry = prometheus.NewRegistry()

	pm.CrontabReadsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronkeep_crontab_reads",
			Help: "count of crontab reads",
		},
		[]string{"result"},
	)
	pm.registry.MustRegister(pm.CrontabReadsCounter)

	pm.CrontabSavesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronkeep_crontab_saves",
			Help: "count of crontab saves",
		},
		[]string{"result"},
	)
	pm.registry.MustRegister(pm.CrontabSavesCounter)

	pm.JobMutationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cronkeep_job_mutations",
			Help: "count of job edits applied to the crontab",
		},
		[]string{"operation"},
	)
	pm.registry.MustRegister(pm.JobMutationsCounter)

	pm.JobsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cronkeep_jobs",
			Help: "number of jobs in the last loaded crontab",
		},
		[]string{"state"},
	)
	pm.registry.MustRegister(pm.JobsGauge)

	pm.CommandDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cronkeep_command_duration_seconds",
			Help:    "execution times of crontab, at and whoami invocations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0, 30.0},
		},
		[]string{"command"},
	)
	pm.registry.MustRegister(pm.CommandDurationHistogram)

	return &pm
}

func (p *PrometheusMetrics) Reset() {
	if p == nil {
		return
	}
	p.CrontabReadsCounter.Reset()
	p.CrontabSavesCounter.Reset()
	p.JobMutationsCounter.Reset()
	p.JobsGauge.Reset()
	p.CommandDurationHistogram.Reset()
}

func (p *PrometheusMetrics) ObserveRead(result string) {
	if p == nil {
		return
	}
	p.CrontabReadsCounter.With(prometheus.Labels{"result": result}).Inc()
}

func (p *PrometheusMetrics) ObserveSave(result string) {
	if p == nil {
		return
	}
	p.CrontabSavesCounter.With(prometheus.Labels{"result": result}).Inc()
}

func (p *PrometheusMetrics) ObserveMutation(operation string) {
	if p == nil {
		return
	}
	p.JobMutationsCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

func (p *PrometheusMetrics) SetJobs(active, paused int) {
	if p == nil {
		return
	}
	p.JobsGauge.With(prometheus.Labels{"state": "active"}).Set(float64(active))
	p.JobsGauge.With(prometheus.Labels{"state": "paused"}).Set(float64(paused))
}

func (p *PrometheusMetrics) ObserveCommand(command string, d time.Duration) {
	if p == nil {
		return
	}
	p.CommandDurationHistogram.With(prometheus.Labels{"command": command}).Observe(d.Seconds())
}

// getAddr completes a listen address with DefaultPort when it has none.
func getAddr(addr string) (string, error) {
	if addr == "" {
		return "", errors.New("empty listen address")
	}

	if host, port, err := net.SplitHostPort(addr); err == nil {
		if _, err := strconv.Atoi(port); err != nil {
			return "", fmt.Errorf("invalid port in listen address %q", addr)
		}
		return net.JoinHostPort(host, port), nil
	}

	host := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	return net.JoinHostPort(host, DefaultPort), nil
}

func (p *PrometheusMetrics) InitHTTPServer() error {
	addr, err := getAddr(p.listenAddr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>
             <head><title>cronkeep</title></head>
             <body>
             <h1>cronkeep</h1>
             <p><a href='/metrics'>Metrics</a></p>
             </body>
             </html>`))
	})

	p.srv = &http.Server{Addr: addr, Handler: mux}
	return p.srv.ListenAndServe()
}

func (p *PrometheusMetrics) ShutdownHTTPServer(c context.Context) error {
	if p.srv == nil {
		return nil
	}
	return p.srv.Shutdown(c)
}
