// Package metrics expone los contadores Prometheus del motor de inventario.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "album_ledger"

// Metrics agrupa los colectores. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	MovementsApplied  *prometheus.CounterVec
	MovementsRejected *prometheus.CounterVec
	ConsistencyErrors prometheus.Counter
	Reconciliations   *prometheus.CounterVec
}

// New crea los colectores y los registra en reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MovementsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_applied_total",
			Help:      "Movimientos de stock aplicados, por tipo.",
		}, []string{"type"}),
		MovementsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_rejected_total",
			Help:      "Movimientos rechazados, por motivo.",
		}, []string{"reason"}),
		ConsistencyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consistency_errors_total",
			Help:      "Diferencias detectadas entre el ledger y el stock cacheado.",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Recalculos de stock desde el ledger, por resultado (clean|repaired).",
		}, []string{"result"}),
	}
	reg.MustRegister(m.MovementsApplied, m.MovementsRejected, m.ConsistencyErrors, m.Reconciliations)
	return m
}

// Applied registra un movimiento aplicado.
func (m *Metrics) Applied(typ string) {
	if m == nil {
		return
	}
	m.MovementsApplied.WithLabelValues(typ).Inc()
}

// Rejected registra un rechazo de negocio o validación.
func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.MovementsRejected.WithLabelValues(reason).Inc()
}

// Inconsistent registra una divergencia ledger/stock.
func (m *Metrics) Inconsistent() {
	if m == nil {
		return
	}
	m.ConsistencyErrors.Inc()
}

// Reconciled registra un recálculo; repaired indica si hubo que corregir el stock.
func (m *Metrics) Reconciled(repaired bool) {
	if m == nil {
		return
	}
	result := "clean"
	if repaired {
		result = "repaired"
	}
	m.Reconciliations.WithLabelValues(result).Inc()
}
