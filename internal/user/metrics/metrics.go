package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the account module.
type Metrics struct {
	UsersCreated prometheus.Counter
	Logins       prometheus.Counter
	AuthFailures prometheus.Counter
}

// New creates a Metrics instance with all account metrics registered.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_users_created_total",
			Help: "Total number of accounts created",
		}),
		Logins: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_logins_total",
			Help: "Successful logins",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_auth_failures_total",
			Help: "Rejected login attempts",
		}),
	}
}
