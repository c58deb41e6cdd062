// Package metrics exposes prometheus collectors for the deployment gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's prometheus collectors.
type Metrics struct {
	SagaOutcomes    *prometheus.CounterVec
	Compensations   prometheus.Counter
	CodesIssued     prometheus.Counter
	CodeValidations *prometheus.CounterVec
}

// New creates and registers the collectors on reg. Passing
// prometheus.DefaultRegisterer wires them into the default /metrics output.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SagaOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unideploy",
			Subsystem: "saga",
			Name:      "outcomes_total",
			Help:      "Saga executions by final stage and outcome",
		}, []string{"stage", "outcome"}),
		Compensations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unideploy",
			Subsystem: "saga",
			Name:      "compensations_total",
			Help:      "Number of compensation unwinds executed",
		}),
		CodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "unideploy",
			Subsystem: "deploycode",
			Name:      "issued_total",
			Help:      "Number of deploy codes issued",
		}),
		CodeValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "unideploy",
			Subsystem: "deploycode",
			Name:      "validations_total",
			Help:      "Deploy code validation attempts by outcome",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.SagaOutcomes, m.Compensations, m.CodesIssued, m.CodeValidations)
	}
	return m
}

// NewUnregistered creates collectors without registering them, for tests.
func NewUnregistered() *Metrics {
	return New(nil)
}
