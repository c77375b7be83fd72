package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics tracks checkout submissions and gateway reconciliation
// outcomes.
type CheckoutMetrics struct {
	submissions     *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	discountVND     prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_submissions_total",
		Help: "Checkout submissions grouped by outcome.",
	}, []string{"outcome"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Gateway return reconciliations grouped by result.",
	}, []string{"result"})
	discountVND := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "promotion_discount_vnd_total",
		Help: "Total promotion discount applied to paid orders, in VND.",
	})
	reg.MustRegister(submissions, reconciliations, discountVND)
	return &CheckoutMetrics{
		submissions:     submissions,
		reconciliations: reconciliations,
		discountVND:     discountVND,
	}
}

// IncSubmission increments the submission counter for the given outcome.
func (m *CheckoutMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncReconciliation increments the reconciliation counter for the given result.
func (m *CheckoutMetrics) IncReconciliation(result string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(result)).Inc()
}

// AddDiscountVND accumulates applied promotion discounts.
func (m *CheckoutMetrics) AddDiscountVND(amount int64) {
	if m == nil || m.discountVND == nil || amount <= 0 {
		return
	}
	m.discountVND.Add(float64(amount))
}
