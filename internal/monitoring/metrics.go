package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Checkins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketgate_checkins_total",
			Help: "Check-in attempts by result",
		},
		[]string{"result"},
	)

	LocateSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketgate_locate_steps_total",
			Help: "Ticket lookup steps executed, by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	AuditFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketgate_checkin_audit_failures_total",
			Help: "Check-in audit entries that could not be written",
		},
	)

	Webhooks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketgate_webhooks_total",
			Help: "Payment webhook deliveries by result",
		},
		[]string{"result"},
	)

	Emails = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketgate_emails_total",
			Help: "Confirmation emails by result",
		},
		[]string{"result"},
	)
)

func TrackCheckin(result string) {
	Checkins.WithLabelValues(result).Inc()
}

func TrackLocateStep(step string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	LocateSteps.WithLabelValues(step, outcome).Inc()
}

func TrackAuditFailure() {
	AuditFailures.Inc()
}

func TrackWebhook(result string) {
	Webhooks.WithLabelValues(result).Inc()
}

func TrackEmail(result string) {
	Emails.WithLabelValues(result).Inc()
}
