// Package metrics exports transaction engine events as Prometheus metrics.
package metrics

import (
	"context"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"txscope/internal/errs"
	"txscope/internal/txn"
)

// TxObserver counts scopes and physical outcomes. It is safe for concurrent
// use by any number of call chains.
type TxObserver struct {
	scopes       *prometheus.CounterVec
	physical     *prometheus.CounterVec
	suspensions  prometheus.Counter
	rollbackOnly prometheus.Counter
	unexpected   prometheus.Counter
	active       prometheus.Gauge
}

var _ txn.Observer = (*TxObserver)(nil)

func NewTxObserver(reg prometheus.Registerer, namespace string) (*TxObserver, error) {
	namespace = strings.TrimSpace(namespace)

	o := &TxObserver{
		scopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txn",
			Name:      "scopes_total",
			Help:      "Logical scopes begun, by propagation and whether they started a physical transaction.",
		}, []string{"propagation", "kind"}),
		physical: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txn",
			Name:      "physical_completions_total",
			Help:      "Physical transactions finished, by outcome.",
		}, []string{"outcome"}),
		suspensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txn",
			Name:      "suspensions_total",
			Help:      "Transactions suspended by REQUIRES_NEW scopes.",
		}),
		rollbackOnly: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txn",
			Name:      "rollback_only_marks_total",
			Help:      "Joined scopes that completed with rollback.",
		}),
		unexpected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "txn",
			Name:      "unexpected_rollbacks_total",
			Help:      "Commits turned into rollbacks because the transaction was rollback-only.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "txn",
			Name:      "active_handles",
			Help:      "Resource handles acquired and not yet released.",
		}),
	}

	for _, c := range []prometheus.Collector{o.scopes, o.physical, o.suspensions, o.rollbackOnly, o.unexpected, o.active} {
		if err := reg.Register(c); err != nil {
			return nil, errs.Wrap(err, "register transaction metric")
		}
	}
	return o, nil
}

func (o *TxObserver) Observe(_ context.Context, ev txn.Event) {
	switch ev.Kind {
	case txn.EventCreated:
		o.scopes.WithLabelValues(ev.Propagation.String(), "new").Inc()
		o.active.Inc()
	case txn.EventJoined:
		o.scopes.WithLabelValues(ev.Propagation.String(), "joined").Inc()
	case txn.EventSuspended:
		o.suspensions.Inc()
	case txn.EventCommitted:
		o.physical.WithLabelValues("commit").Inc()
	case txn.EventRolledBack:
		o.physical.WithLabelValues("rollback").Inc()
	case txn.EventRollbackOnly:
		o.rollbackOnly.Inc()
	case txn.EventUnexpectedRollback:
		o.unexpected.Inc()
	case txn.EventReleased:
		o.active.Dec()
	}
}

// WriteText dumps every metric family gathered by g in the Prometheus text
// exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errs.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errs.Wrap(err, "write metric family")
		}
	}
	return nil
}
