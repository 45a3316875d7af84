package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubJob struct {
	id      string
	execute func(ctx context.Context) error
}

func (j *stubJob) Execute(ctx context.Context) error {
	if j.execute == nil {
		return nil
	}
	return j.execute(ctx)
}

func (j *stubJob) ConnectionID() string { return j.id }
func (j *stubJob) Description() string  { return "stub job " + j.id }

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ScheduleTime
		wantErr bool
	}{
		{input: "06:00", want: ScheduleTime{Hour: 6, Minute: 0}},
		{input: "23:59", want: ScheduleTime{Hour: 23, Minute: 59}},
		{input: "0:5", want: ScheduleTime{Hour: 0, Minute: 5}},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseScheduleTime(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseScheduleTime(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseScheduleTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSchedulerRequiresScheduleTimes(t *testing.T) {
	_, err := NewScheduler(Config{WorkerCount: 1, QueueSize: 1})
	if err == nil {
		t.Error("NewScheduler() expected error with no schedule times")
	}
}

func TestShouldRunOncePerMinute(t *testing.T) {
	s, err := NewScheduler(Config{
		ScheduleTimes: []string{"06:00"},
		WorkerCount:   1,
		QueueSize:     1,
	})
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	at6 := time.Date(2025, 3, 10, 6, 0, 30, 0, time.UTC)
	if !s.shouldRun(at6) {
		t.Error("shouldRun() = false at scheduled minute, want true")
	}
	if s.shouldRun(at6.Add(10 * time.Second)) {
		t.Error("shouldRun() = true for second tick in same minute, want false")
	}
	if s.shouldRun(at6.Add(5 * time.Minute)) {
		t.Error("shouldRun() = true off schedule, want false")
	}

	nextDay := at6.AddDate(0, 0, 1)
	if !s.shouldRun(nextDay) {
		t.Error("shouldRun() = false at scheduled minute next day, want true")
	}
}

func TestWorkerPoolProcessesJobs(t *testing.T) {
	pool := NewWorkerPool(2, 0, 10)
	pool.Start()

	var mu sync.Mutex
	executed := make(map[string]bool)
	done := make(chan struct{}, 3)

	for _, id := range []string{"1", "2", "3"} {
		job := &stubJob{id: id, execute: func(ctx context.Context) error {
			mu.Lock()
			executed[id] = true
			mu.Unlock()
			done <- struct{}{}
			return nil
		}}
		if err := pool.Submit(job); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs to execute")
		}
	}

	pool.ShutdownWithTimeout(time.Second)

	mu.Lock()
	defer mu.Unlock()
	if len(executed) != 3 {
		t.Errorf("executed %d jobs, want 3", len(executed))
	}
}

func TestWorkerPoolFullQueueDropsJob(t *testing.T) {
	// No workers started, queue of one: second submit must be rejected.
	pool := NewWorkerPool(1, 0, 1)

	if err := pool.Submit(&stubJob{id: "1"}); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if err := pool.Submit(&stubJob{id: "2"}); err == nil {
		t.Error("second Submit() expected queue-full error, got nil")
	}
}

func TestWorkerPoolContinuesAfterJobError(t *testing.T) {
	pool := NewWorkerPool(1, 0, 10)
	pool.Start()

	done := make(chan string, 2)
	failing := &stubJob{id: "bad", execute: func(ctx context.Context) error {
		done <- "bad"
		return errors.New("provider unavailable")
	}}
	healthy := &stubJob{id: "good", execute: func(ctx context.Context) error {
		done <- "good"
		return nil
	}}

	if err := pool.Submit(failing); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := pool.Submit(healthy); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	pool.ShutdownWithTimeout(time.Second)
}
