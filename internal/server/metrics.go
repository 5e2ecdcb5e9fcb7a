// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported on /metrics. Each
// Server gets its own registry so tests can run servers side by side.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	logins          *prometheus.CounterVec
	logouts         *prometheus.CounterVec
	timeoutMinutes  prometheus.Gauge
}

// NewMetrics registers the server collectors. activeSessions is sampled on
// every scrape.
func NewMetrics(activeSessions func(context.Context) (int, error)) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionguard",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sessionguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionguard",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sessionguard",
			Name:      "logouts_total",
			Help:      "Logout calls by result.",
		}, []string{"result"}),
		timeoutMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sessionguard",
			Name:      "inactivity_timeout_minutes",
			Help:      "Community inactivity timeout currently configured.",
		}),
	}

	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.logins,
		m.logouts,
		m.timeoutMinutes,
		collectors.NewGoCollector(),
	)
	if activeSessions != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "sessionguard",
			Name:      "active_sessions",
			Help:      "Issued tokens that are neither revoked nor expired.",
		}, func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := activeSessions(ctx)
			if err != nil {
				return 0
			}
			return float64(n)
		}))
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeRequest(r *http.Request, code int, d time.Duration) {
	if m == nil {
		return
	}
	route := r.Pattern
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) login(ok bool) {
	if m != nil {
		m.logins.WithLabelValues(result(ok)).Inc()
	}
}

func (m *Metrics) logout(ok bool) {
	if m != nil {
		m.logouts.WithLabelValues(result(ok)).Inc()
	}
}

func (m *Metrics) setTimeout(d time.Duration) {
	if m != nil {
		m.timeoutMinutes.Set(d.Minutes())
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
