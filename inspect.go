// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package forest

import "github.com/prometheus/client_golang/prometheus"

// Inspect is the optional counters/diagnostics handle spec.md §9 asks for:
// "the source uses a module-level inspect record for counters. This should
// be an optional handle passed into the operation, not a singleton."
// A nil *Inspect is always valid and simply disables counting.
type Inspect struct {
	// BalanceSort selects the sort-variant balance algorithm (spec.md
	// §4.6) instead of the default ghost-layer protocol (§4.5) the next
	// time Balance is called on the forest this handle is attached to.
	BalanceSort bool

	// LocalOnlySkipped counts leaves skipped during Phase A scheduling
	// because their full insulation layer is already locally owned
	// (grounded on p4est_comm_neighborhood_owned's "skipped" counter).
	LocalOnlySkipped prometheus.Counter

	// FirstRoundSent / SecondRoundSent count quadrants shipped in the
	// ghost-layer protocol's two exchange rounds.
	FirstRoundSent  prometheus.Counter
	SecondRoundSent prometheus.Counter

	// QuadrantArenaLive reports the current transient-quadrant arena
	// occupancy as a gauge, set each time the local balance kernel finishes.
	QuadrantArenaLive prometheus.Gauge
}

// NewInspect returns an Inspect handle with its counters registered under
// the given Prometheus registerer (pass nil to skip registration and use
// the counters purely in-process). Each forest operation that accepts an
// *Inspect is safe to call with nil.
func NewInspect(reg prometheus.Registerer) *Inspect {
	ins := &Inspect{
		LocalOnlySkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forest_balance_local_only_skipped_total",
			Help: "Leaves skipped in balance Phase A because their insulation layer is fully locally owned.",
		}),
		FirstRoundSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forest_balance_first_round_sent_total",
			Help: "Quadrants sent in the ghost-layer protocol's first exchange round.",
		}),
		SecondRoundSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "forest_balance_second_round_sent_total",
			Help: "Quadrants sent in the ghost-layer protocol's second exchange round.",
		}),
		QuadrantArenaLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "forest_quadrant_arena_live",
			Help: "Transient quadrants currently checked out of the per-forest arena.",
		}),
	}
	if reg != nil {
		reg.MustRegister(ins.LocalOnlySkipped, ins.FirstRoundSent, ins.SecondRoundSent, ins.QuadrantArenaLive)
	}
	return ins
}

func (ins *Inspect) incLocalOnlySkipped() {
	if ins != nil && ins.LocalOnlySkipped != nil {
		ins.LocalOnlySkipped.Inc()
	}
}

func (ins *Inspect) addFirstRoundSent(n int) {
	if ins != nil && ins.FirstRoundSent != nil {
		ins.FirstRoundSent.Add(float64(n))
	}
}

func (ins *Inspect) addSecondRoundSent(n int) {
	if ins != nil && ins.SecondRoundSent != nil {
		ins.SecondRoundSent.Add(float64(n))
	}
}

func (ins *Inspect) setArenaLive(n int64) {
	if ins != nil && ins.QuadrantArenaLive != nil {
		ins.QuadrantArenaLive.Set(float64(n))
	}
}

func (ins *Inspect) balanceSort() bool {
	return ins != nil && ins.BalanceSort
}
