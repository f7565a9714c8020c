// Package metrics exposes Prometheus counters for the routing pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ForwardRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "router_forward_requests_total",
			Help: "Total number of forward requests received",
		},
	)
	RuleMatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "router_rule_matches_total",
			Help: "Total number of forward requests matched by a rule",
		},
	)
	NoMatch = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "router_no_match_total",
			Help: "Total number of forward requests no rule matched",
		},
	)
	ForwardFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "router_forward_failures_total",
			Help: "Total number of outbound forwarding failures",
		},
	)
	ConfigReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "router_config_reloads_total",
			Help: "Total number of configuration reloads and updates applied",
		},
	)
	ActiveRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_active_rules",
			Help: "Number of rules in the active rule set",
		},
	)
)

// Register registers all router metrics with the default registry.
func Register() {
	prometheus.MustRegister(
		ForwardRequests,
		RuleMatches,
		NoMatch,
		ForwardFailures,
		ConfigReloads,
		ActiveRules,
	)
}
