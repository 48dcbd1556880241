package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MembersCreated     prometheus.Counter
	SectionsCreated    prometheus.Counter
	PoliciesActivated  prometheus.Counter
	PaymentsRecorded   prometheus.Counter
	ConditionsChecked  prometheus.Counter
	EligibilityChecks  prometheus.Counter
	RoleChanges        prometheus.Counter
	BootstrapAttempts  *prometheus.CounterVec
	AuditAppendFailure prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MembersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_members_created_total",
			Help: "Total number of members created in the system",
		}),
		SectionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_sections_created_total",
			Help: "Total number of sections created",
		}),
		PoliciesActivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_contribution_policies_activated_total",
			Help: "Total number of contribution policy activations",
		}),
		PaymentsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_payments_recorded_total",
			Help: "Total number of contribution payments recorded",
		}),
		ConditionsChecked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_condition_validations_total",
			Help: "Total number of member condition validation actions",
		}),
		EligibilityChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_eligibility_checks_total",
			Help: "Total number of eligibility evaluations",
		}),
		RoleChanges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_role_changes_total",
			Help: "Total number of member role changes",
		}),
		BootstrapAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "amicale_bootstrap_attempts_total",
			Help: "Break-glass superadmin escalation attempts by outcome",
		}, []string{"outcome"}),
		AuditAppendFailure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "amicale_audit_append_failures_total",
			Help: "Audit entries that could not be appended",
		}),
	}
}
