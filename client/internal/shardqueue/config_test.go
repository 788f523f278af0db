package shardqueue

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SQ_SHARDS", "8")
	t.Setenv("SQ_QUEUE_SIZE", "256")
	t.Setenv("SQ_ENQUEUE_TIMEOUT", "250ms")
	t.Setenv("SQ_BASE_BACKOFF", "2ms")
	t.Setenv("SQ_MAX_INTERVAL", "40ms")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Shards != 8 || cfg.QueueSize != 256 {
		t.Fatalf("unexpected Shards/QueueSize: %+v", cfg)
	}
	if cfg.EnqueueTimeout.String() != "250ms" {
		t.Fatalf("unexpected EnqueueTimeout: %v", cfg.EnqueueTimeout)
	}
	if cfg.BaseBackoff.String() != "2ms" || cfg.MaxInterval.String() != "40ms" {
		t.Fatalf("unexpected backoff settings: base=%v max=%v", cfg.BaseBackoff, cfg.MaxInterval)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.Shards != 4 || cfg.QueueSize != 128 || cfg.EnqueueTimeout.String() != "100ms" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestQueueFullError_ErrorAndIs(t *testing.T) {
	e := &QueueFullError{Shard: 3, Length: 10, Capacity: 16}
	if !strings.Contains(e.Error(), "shard queue 3") {
		t.Fatalf("unexpected error string %q", e.Error())
	}
	if !errors.Is(e, ErrQueueFull) {
		t.Fatal("expected errors.Is(e, ErrQueueFull) to be true")
	}
	if errors.Is(e, ErrExecutorClosed) {
		t.Fatal("unexpected match with ErrExecutorClosed")
	}

	shared := &QueueFullError{Shard: -1, Length: 1, Capacity: 1}
	if !strings.HasPrefix(shared.Error(), "shared queue") {
		t.Fatalf("unexpected error string %q", shared.Error())
	}
}

func TestJobFunc_AdaptsFunction(t *testing.T) {
	called := false
	j := JobFunc(func(ctx context.Context) error { called = true; return nil })
	if err := j.Run(context.Background()); err != nil {
		t.Fatalf("run error: %v", err)
	}
	if !called {
		t.Fatal("expected function to be called")
	}
}
