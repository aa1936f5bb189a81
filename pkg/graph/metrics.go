package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	insertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicgraph",
		Subsystem: "graph",
		Name:      "inserts_total",
		Help:      "Number of triples written to the backend (deduplicated inserts excluded).",
	})
	duplicateInsertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicgraph",
		Subsystem: "graph",
		Name:      "duplicate_inserts_total",
		Help:      "Number of idempotent no-op inserts of already-present triples.",
	})
	deletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicgraph",
		Subsystem: "graph",
		Name:      "deletes_total",
		Help:      "Number of triples removed from the backend.",
	})
	findsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicgraph",
		Subsystem: "graph",
		Name:      "finds_total",
		Help:      "Number of pattern queries served.",
	})
	fullScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "logicgraph",
		Subsystem: "graph",
		Name:      "full_scans_total",
		Help:      "Number of pattern queries that fell back to a full backend scan.",
	})
)
