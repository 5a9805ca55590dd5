package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rpacode/edlsync/internal/model"
	"github.com/rpacode/edlsync/internal/store"
	"github.com/rpacode/edlsync/internal/syncq"
)

// TestNewScheduler_defaults verifies zero-valued config falls back to
// the default timing.
func TestNewScheduler_defaults(t *testing.T) {
	client := &fakeClient{}
	eng, s, _ := newTestEngine(t, client)

	sched := NewScheduler(eng, s, SchedulerConfig{})
	if sched.interval != 30*time.Second {
		t.Errorf("interval = %v, want 30s", sched.interval)
	}
	if sched.maintenanceSpec != "0 3 * * *" {
		t.Errorf("maintenanceSpec = %q", sched.maintenanceSpec)
	}
	if sched.retentionDays != 30 {
		t.Errorf("retentionDays = %d", sched.retentionDays)
	}
}

// TestTick_probeDrivesConnectivity verifies the probe result feeds the
// engine and an online tick drains the queue.
func TestTick_probeDrivesConnectivity(t *testing.T) {
	client := &fakeClient{succeed: true, healthy: false}
	eng, s, q := newTestEngine(t, client)
	sched := NewScheduler(eng, s, SchedulerConfig{})

	if _, err := eng.SubmitInspection(context.Background(), &model.Inspection{EDLNumber: "EDL-1"}); err != nil {
		t.Fatalf("SubmitInspection failed: %v", err)
	}

	sched.tick(context.Background())
	if eng.IsOnline() {
		t.Error("engine should stay offline on a failed probe")
	}
	if n, _ := q.Size(); n != 1 {
		t.Errorf("queue depth = %d, want 1 while offline", n)
	}

	client.mu.Lock()
	client.healthy = true
	client.mu.Unlock()

	sched.tick(context.Background())
	if !eng.IsOnline() {
		t.Error("engine should be online after a healthy probe")
	}
	if n, _ := q.Size(); n != 0 {
		t.Errorf("queue depth = %d, want 0 after online tick", n)
	}
}

// TestRunMaintenance_settingOverride verifies the runtime setting wins
// over the configured retention default.
func TestRunMaintenance_settingOverride(t *testing.T) {
	// Pin the clock so record ages are exact.
	clock := time.Now().Add(-15 * 24 * time.Hour).Unix()
	s, err := store.Open(t.TempDir(), store.WithClock(func() int64 { return clock }))
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	eng := New(s, syncq.NewQueue(s), &fakeClient{}, 0)
	sched := NewScheduler(eng, s, SchedulerConfig{RetentionDays: 30})

	// Created and synced 15 days ago.
	insp, err := s.CreateInspection(&model.Inspection{EDLNumber: "EDL-1"})
	if err != nil {
		t.Fatalf("CreateInspection failed: %v", err)
	}
	if _, err := s.UpdateInspectionStatus(insp.ID, model.InspectionStatusSynced); err != nil {
		t.Fatalf("UpdateInspectionStatus failed: %v", err)
	}

	clock = time.Now().Unix()

	sched.runMaintenance()
	if got, _ := s.GetInspection(insp.ID); got == nil {
		t.Fatal("15-day-old record should survive the 30-day default")
	}

	// A 10-day retention setting prunes what the 30-day default keeps.
	if err := s.SetSetting(model.SettingDataRetentionDays, 10); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}

	sched.runMaintenance()
	if got, _ := s.GetInspection(insp.ID); got != nil {
		t.Error("record past the overridden retention should be pruned")
	}
}

// TestStartStop verifies lifecycle idempotence.
func TestStartStop(t *testing.T) {
	client := &fakeClient{healthy: false}
	eng, s, _ := newTestEngine(t, client)
	sched := NewScheduler(eng, s, SchedulerConfig{SyncInterval: time.Hour})

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	sched.Stop()
	sched.Stop()
}
