package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestOptionsAcceptsAddressAndURL(t *testing.T) {
	opts, err := Options("localhost:6379")
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 0 {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = Options("redis://:secret@cache.internal:6380/3")
	if err != nil {
		t.Fatalf("options url: %v", err)
	}
	if opts.Addr != "cache.internal:6380" || opts.Password != "secret" || opts.DB != 3 {
		t.Fatalf("unexpected url options %+v", opts)
	}

	if _, err := Options("  "); err == nil {
		t.Fatalf("expected error for empty address")
	}
}

func TestAsynqOptMirrorsRedisOptions(t *testing.T) {
	opt, err := AsynqOpt("redis://cache.internal:6380/2")
	if err != nil {
		t.Fatalf("asynq opt: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.DB != 2 {
		t.Fatalf("unexpected asynq options %+v", opt)
	}
}

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer client.Close()

	if _, err := New(context.Background(), "127.0.0.1:1"); err == nil {
		t.Fatalf("expected ping failure for a closed port")
	}
}
