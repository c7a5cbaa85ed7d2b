// Package metrics counts progression events on a private Prometheus registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	reg *prometheus.Registry

	xp          *prometheus.CounterVec
	coins       *prometheus.CounterVec
	hp          *prometheus.CounterVec
	levelUps    prometheus.Counter
	knockouts   prometheus.Counter
	reversals   *prometheus.CounterVec
	dailyResets *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		xp: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracktivity_xp_granted_total",
				Help: "XP granted, by source",
			},
			[]string{"source"},
		),
		coins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracktivity_coins_granted_total",
				Help: "Coins granted, by source",
			},
			[]string{"source"},
		),
		hp: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracktivity_hp_lost_total",
				Help: "Health lost, by source",
			},
			[]string{"source"},
		),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracktivity_level_ups_total",
			Help: "Level-ups",
		}),
		knockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracktivity_knockouts_total",
			Help: "Times health reached zero",
		}),
		reversals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracktivity_reversals_total",
				Help: "Uncompletions, by whether a reward was reversed",
			},
			[]string{"outcome"},
		),
		dailyResets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracktivity_daily_resets_total",
				Help: "Daily reset runs, by outcome",
			},
			[]string{"outcome"},
		),
	}
	r.reg.MustRegister(r.xp, r.coins, r.hp, r.levelUps, r.knockouts, r.reversals, r.dailyResets)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) Reward(source string, xp, coins int) {
	if r == nil {
		return
	}
	if xp > 0 {
		r.xp.WithLabelValues(source).Add(float64(xp))
	}
	if coins > 0 {
		r.coins.WithLabelValues(source).Add(float64(coins))
	}
}

func (r *Recorder) Damage(source string, hp int) {
	if r == nil || hp <= 0 {
		return
	}
	r.hp.WithLabelValues(source).Add(float64(hp))
}

func (r *Recorder) LevelUps(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.levelUps.Add(float64(n))
}

func (r *Recorder) Knockout() {
	if r == nil {
		return
	}
	r.knockouts.Inc()
}

// Reversal counts an uncompletion. reversed is false when no log was found.
func (r *Recorder) Reversal(reversed bool) {
	if r == nil {
		return
	}
	outcome := "reversed"
	if !reversed {
		outcome = "no_log"
	}
	r.reversals.WithLabelValues(outcome).Inc()
}

// DailyReset counts a reset run. alreadyRan marks a same-day repeat.
func (r *Recorder) DailyReset(alreadyRan bool) {
	if r == nil {
		return
	}
	outcome := "applied"
	if alreadyRan {
		outcome = "skipped"
	}
	r.dailyResets.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
