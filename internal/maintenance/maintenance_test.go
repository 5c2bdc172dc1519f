package maintenance

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/orb-chat/orb/internal/history/sqlitekv"
)

type stubJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(ctx context.Context) error {
	if j.run == nil {
		return nil
	}
	return j.run(ctx)
}

func TestRegisterJobRejectsDuplicates(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.RegisterJob(&stubJob{name: "a", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first RegisterJob() error: %v", err)
	}
	if err := s.RegisterJob(&stubJob{name: "a", schedule: "* * * * *"}); err == nil {
		t.Error("duplicate RegisterJob() succeeded, want error")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.RegisterJob(&stubJob{name: "bad", schedule: "not a cron expr"}); err != nil {
		t.Fatalf("RegisterJob() error: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Start() succeeded with invalid schedule, want error")
		_ = s.Stop(context.Background())
	}
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.RegisterJob(&stubJob{name: "noop", schedule: "0 4 * * *"}); err != nil {
		t.Fatalf("RegisterJob() error: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
}

func TestJobLockSkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	// The per-job lock semantics the scheduler relies on: a tick that
	// finds the lock held skips instead of queueing.
	var lock sync.Mutex
	ran := 0

	tick := func() {
		if !lock.TryLock() {
			return
		}
		defer lock.Unlock()
		ran++
	}

	lock.Lock()
	tick() // skipped while held
	lock.Unlock()
	tick()

	if ran != 1 {
		t.Errorf("ran = %d, want 1", ran)
	}
}

func TestVacuumJobRuns(t *testing.T) {
	t.Parallel()

	store, err := sqlitekv.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("sqlitekv.Open() error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	kv := store.Namespace("user-chats")
	if err := kv.Put(ctx, "u1", []byte(`[]`)); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	job := NewVacuumJob(store, "0 4 * * *")
	if job.Name() != "history-vacuum" {
		t.Errorf("Name() = %q", job.Name())
	}
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	// Data survives the vacuum.
	raw, ok, err := kv.Get(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("Get() after vacuum = %v, %v", ok, err)
	}
	if string(raw) != `[]` {
		t.Errorf("value after vacuum = %q", raw)
	}
}
