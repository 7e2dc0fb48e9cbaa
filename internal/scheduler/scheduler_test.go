package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/ottgen/internal/config"
)

var kst = time.FixedZone("KST", 9*3600)

func TestNextFire(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		hour int
		min  int
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 3, 14, 8, 0, 0, 0, kst),
			hour: 9, min: 5,
			want: time.Date(2026, 3, 14, 9, 5, 0, 0, kst),
		},
		{
			name: "exactly now rolls to tomorrow",
			now:  time.Date(2026, 3, 14, 9, 5, 0, 0, kst),
			hour: 9, min: 5,
			want: time.Date(2026, 3, 15, 9, 5, 0, 0, kst),
		},
		{
			name: "already passed",
			now:  time.Date(2026, 3, 14, 22, 0, 0, 0, kst),
			hour: 21, min: 0,
			want: time.Date(2026, 3, 15, 21, 0, 0, 0, kst),
		},
		{
			name: "month end",
			now:  time.Date(2026, 3, 31, 23, 30, 0, 0, kst),
			hour: 10, min: 0,
			want: time.Date(2026, 4, 1, 10, 0, 0, 0, kst),
		},
		{
			name: "utc input evaluated in location",
			now:  time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC), // 08:00 KST on the 15th
			hour: 9, min: 5,
			want: time.Date(2026, 3, 15, 9, 5, 0, 0, kst),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextFire(tt.now, kst, tt.hour, tt.min)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNew_BuildsJobs(t *testing.T) {
	s := New(config.ScheduleConfig{
		ParseHour:     9,
		ParseMinute:   5,
		PublishHours:  []int{10, 15, 21},
		PublishMinute: 30,
	}, nil, nil)

	require.Len(t, s.jobs, 4)
	assert.Equal(t, "parse", s.jobs[0].Name)
	assert.Equal(t, "generate_15", s.jobs[2].Name)
	assert.Equal(t, 30, s.jobs[2].Minute)
	assert.Equal(t, time.UTC, s.loc)
}

func TestNext_ParseBeforeBatchAtSameTime(t *testing.T) {
	noop := func(context.Context) error { return nil }
	s := NewWithJobs([]Job{
		{Name: "generate_10", Hour: 10, Task: noop},
		{Name: "parse", Hour: 10, Task: noop},
		{Name: "generate_21", Hour: 21, Task: noop},
	}, kst)

	at, due := s.Next(time.Date(2026, 3, 14, 9, 0, 0, 0, kst))
	assert.True(t, at.Equal(time.Date(2026, 3, 14, 10, 0, 0, 0, kst)))
	require.Len(t, due, 2)
	assert.Equal(t, "parse", due[0].Name)
	assert.Equal(t, "generate_10", due[1].Name)
}

func TestRun_FiresInOrder(t *testing.T) {
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, kst)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired []string
	var firedAt []time.Time
	record := func(name string) Task {
		return func(jobCtx context.Context) error {
			fired = append(fired, name)
			firedAt = append(firedAt, clock)
			if len(fired) == 4 {
				cancel()
				// A running job keeps going after shutdown starts.
				assert.NoError(t, jobCtx.Err())
			}
			if name == "generate_15" {
				return errors.New("gateway down")
			}
			return nil
		}
	}

	s := NewWithJobs([]Job{
		{Name: "parse", Hour: 9, Minute: 5, Task: record("parse")},
		{Name: "generate_10", Hour: 10, Task: record("generate_10")},
		{Name: "generate_15", Hour: 15, Task: record("generate_15")},
	}, kst)
	s.now = func() time.Time { return clock }
	s.after = func(d time.Duration) <-chan time.Time {
		clock = clock.Add(d)
		ch := make(chan time.Time, 1)
		ch <- clock
		return ch
	}

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	assert.Equal(t, []string{"parse", "generate_10", "generate_15", "parse"}, fired)
	assert.True(t, firedAt[0].Equal(time.Date(2026, 3, 14, 9, 5, 0, 0, kst)))
	assert.True(t, firedAt[3].Equal(time.Date(2026, 3, 15, 9, 5, 0, 0, kst)))
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewWithJobs([]Job{{Name: "parse", Hour: 9, Task: func(context.Context) error { return nil }}}, kst)
	s.after = func(time.Duration) <-chan time.Time { return make(chan time.Time) }

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
