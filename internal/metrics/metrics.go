// Package metrics declares the prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Call metrics - every contract method invocation
var (
	Calls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventfactory_calls_total",
			Help: "Contract calls by contract, method and outcome",
		},
		[]string{"contract", "method", "outcome"},
	)

	CallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventfactory_call_duration_seconds",
			Help:    "Time taken to execute a contract call, including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"contract"},
	)
)

// Ticketing metrics
var (
	TicketsSold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventfactory_tickets_sold_total",
		Help: "Tickets bought through buy_ticket",
	})

	Payouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventfactory_payouts_total",
		Help: "Successful pay_hosts calls",
	})
)

// Deployment metrics - asynchronous contract instantiation
var (
	Deployments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventfactory_deployments_total",
			Help: "Contract instantiations by outcome",
		},
		[]string{"outcome"},
	)

	DeployQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "eventfactory_deploy_queue_depth",
		Help: "Instantiations waiting for a deploy worker",
	})
)

// Outcome returns the label value for err.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
