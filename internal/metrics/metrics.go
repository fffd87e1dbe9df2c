package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	codesIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_codes_issued_total",
			Help: "Verification codes persisted, by purpose",
		},
		[]string{"purpose"},
	)

	codesRateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_codes_rate_limited_total",
			Help: "Code issuance attempts rejected by the cooldown",
		},
		[]string{"purpose"},
	)

	codeVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_code_verifications_total",
			Help: "Code verification outcomes",
		},
		[]string{"purpose", "result"},
	)

	codeDeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_code_delivery_failures_total",
			Help: "Code deliveries that failed or timed out",
		},
		[]string{"purpose"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by method and result",
		},
		[]string{"method", "result"},
	)

	sessionsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_sessions_purged_total",
			Help: "Expired sessions deleted by the cleanup job",
		},
	)
)

func RecordCodeIssued(purpose string) {
	codesIssuedTotal.WithLabelValues(purpose).Inc()
}

func RecordCodeRateLimited(purpose string) {
	codesRateLimitedTotal.WithLabelValues(purpose).Inc()
}

// RecordCodeVerification result is "accepted" or "rejected".
func RecordCodeVerification(purpose, result string) {
	codeVerificationsTotal.WithLabelValues(purpose, result).Inc()
}

func RecordCodeDeliveryFailed(purpose string) {
	codeDeliveryFailuresTotal.WithLabelValues(purpose).Inc()
}

func RecordLogin(method, result string) {
	loginsTotal.WithLabelValues(method, result).Inc()
}

func RecordSessionsPurged(n int64) {
	sessionsPurgedTotal.Add(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
