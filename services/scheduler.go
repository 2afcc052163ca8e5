// services/scheduler.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/gosimple/slug"
)

// SnapshotUploader stores a rendered report and returns where it landed.
type SnapshotUploader interface {
	UploadJSON(ctx context.Context, key string, body []byte) (string, error)
}

// ReportScheduler periodically logs a statistics snapshot and, when an
// uploader is configured, archives it as JSON.
type ReportScheduler struct {
	stats    *StatsService
	uploader SnapshotUploader
	campaign string
	interval time.Duration
	timeout  time.Duration

	sched gocron.Scheduler
}

func NewReportScheduler(stats *StatsService, uploader SnapshotUploader, campaign string, interval time.Duration) *ReportScheduler {
	return &ReportScheduler{
		stats:    stats,
		uploader: uploader,
		campaign: campaign,
		interval: interval,
		timeout:  30 * time.Second,
	}
}

// Start registers the report job. It is a no-op when the interval is zero.
func (r *ReportScheduler) Start() error {
	if r.interval <= 0 {
		log.Println("[Scheduler] Report job disabled (REPORT_INTERVAL=0)")
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if _, err := r.RunOnce(ctx); err != nil {
				log.Printf("[Scheduler] Report failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to register report job: %w", err)
	}

	sched.Start()
	r.sched = sched
	log.Printf("✅ Report job scheduled every %s", r.interval)
	return nil
}

// Shutdown stops the scheduler and waits for a running report to finish.
func (r *ReportScheduler) Shutdown() error {
	if r.sched == nil {
		return nil
	}
	err := r.sched.Shutdown()
	r.sched = nil
	return err
}

// RunOnce takes one snapshot, logs it and uploads it. An upload failure is
// logged but not returned; the snapshot itself is still reported.
func (r *ReportScheduler) RunOnce(ctx context.Context) (*Snapshot, error) {
	snap, err := r.stats.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	snap.Campaign = r.campaign

	s := snap.Statistics
	log.Printf("📊 [REPORT] users=%d referrals=%d completed=%d with_tickets=%d",
		s.TotalUsers, s.TotalReferrals, s.CompletedUsers, s.UsersWithTickets)

	if r.uploader == nil {
		return snap, nil
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	key := ReportKey(r.campaign, snap.TakenAt)
	url, err := r.uploader.UploadJSON(ctx, key, body)
	if err != nil {
		log.Printf("❌ [REPORT] Upload of %s failed: %v", key, err)
		return snap, nil
	}
	log.Printf("✅ [REPORT] Snapshot uploaded to %s", url)
	return snap, nil
}

// ReportKey is the object key for a snapshot taken at t.
func ReportKey(campaign string, t time.Time) string {
	name := slug.Make(campaign)
	if name == "" {
		name = "campaign"
	}
	return fmt.Sprintf("reports/%s/%s.json", name, t.UTC().Format("20060102T150405Z"))
}
