// services/reconcile.go - Background repair of denormalized thread counters
package services

import (
	"context"
	"sync"
	"time"

	"gfgchapter/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterReconciler recomputes replies_count and last_message_at for threads
// whose counter disagrees with the message table.
type CounterReconciler struct {
	db       *gorm.DB
	feed     ChangeFeed
	schedule string
	timeout  time.Duration
	log      *logrus.Entry

	mu   sync.Mutex
	cron *cron.Cron
}

func NewCounterReconciler(db *gorm.DB, feed ChangeFeed, schedule string) *CounterReconciler {
	return &CounterReconciler{
		db:       db,
		feed:     feed,
		schedule: schedule,
		timeout:  5 * time.Minute,
		log:      logrus.WithField("component", "reconciler"),
	}
}

type counterDrift struct {
	ID           string
	TeamID       string
	RepliesCount int
	Actual       int
}

// ReconcileOnce repairs every drifted thread and returns how many were fixed.
func (r *CounterReconciler) ReconcileOnce(ctx context.Context) (int, error) {
	var drifted []counterDrift
	err := r.db.WithContext(ctx).Raw(`
		SELECT t.id AS id, t.team_id AS team_id, t.replies_count AS replies_count, COUNT(m.id) AS actual
		FROM mentorship_threads t
		LEFT JOIN mentorship_messages m ON m.thread_id = t.id
		GROUP BY t.id, t.team_id, t.replies_count
		HAVING CASE WHEN COUNT(m.id) >= COALESCE(MAX(m.seq), 0) THEN COUNT(m.id) ELSE MAX(m.seq) END <> t.replies_count`).
		Scan(&drifted).Error
	if err != nil {
		return 0, wrap("Reconcile", err)
	}
	if len(drifted) == 0 {
		r.log.Debug("No drifted thread counters")
		return 0, nil
	}

	fixed := 0
	for _, d := range drifted {
		if err := r.repair(ctx, d); err != nil {
			r.log.WithError(err).WithField("thread_id", d.ID).Warn("counter repair failed")
			continue
		}
		fixed++
		publish(ctx, r.feed, r.log, threadsTopic(d.TeamID))
	}

	countersRepaired.Add(float64(fixed))
	r.log.WithFields(logrus.Fields{"drifted": len(drifted), "fixed": fixed}).Info("Reconciled thread counters")
	return fixed, nil
}

// repairCounter recomputes both denormalized fields from the message table
// in one statement. The counter never drops below the highest seq so the
// next append cannot reissue a taken seq.
const repairCounter = `
UPDATE mentorship_threads SET
	replies_count = (
		SELECT CASE WHEN COUNT(*) >= COALESCE(MAX(m.seq), 0) THEN COUNT(*) ELSE MAX(m.seq) END
		FROM mentorship_messages m WHERE m.thread_id = mentorship_threads.id
	),
	last_message_at = COALESCE(
		(SELECT MAX(m.created_at) FROM mentorship_messages m WHERE m.thread_id = mentorship_threads.id),
		created_at
	)
WHERE id = ?`

func (r *CounterReconciler) repair(ctx context.Context, d counterDrift) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// row lock: appends to this thread wait until the repair commits
		var thread models.ThreadDetails
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", d.ID).First(&thread).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.ThreadMessage{}).Where("thread_id = ?", d.ID).Count(&count).Error; err != nil {
			return err
		}

		r.log.WithFields(logrus.Fields{
			"thread_id": d.ID,
			"stored":    thread.RepliesCount,
			"actual":    count,
		}).Info("Repairing thread counter")

		return tx.Exec(repairCounter, d.ID).Error
	})
}

// Start schedules ReconcileOnce on the configured cron schedule.
func (r *CounterReconciler) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, r.run); err != nil {
		return Invalid("Reconcile", "bad reconcile schedule: "+err.Error())
	}
	c.Start()
	r.cron = c
	r.log.WithField("schedule", r.schedule).Info("Counter reconciler started")
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (r *CounterReconciler) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	r.log.Info("Counter reconciler stopped")
}

func (r *CounterReconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.ReconcileOnce(ctx); err != nil {
		r.log.WithError(err).Error("Counter reconciliation failed")
	}
}
