package session

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/pktwire/internal/testutil/testlog"
)

func TestConfigDefaultsAndValidate(t *testing.T) {
	testlog.Start(t)
	cfg := Config{}.WithDefaults()
	if cfg.ResponseTimeout != 5*time.Second {
		t.Fatalf("response timeout=%v", cfg.ResponseTimeout)
	}
	if cfg.WriteYield != 10*time.Millisecond {
		t.Fatalf("write yield=%v", cfg.WriteYield)
	}
	if cfg.MaxBufferBytes != 4_000_000 || cfg.Codec != "json" || cfg.HandlerMode != HandlerInline {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate defaults: %v", err)
	}

	disabled := Config{WriteYield: -1}.WithDefaults()
	if disabled.WriteYield >= 0 {
		t.Fatalf("negative yield should stay disabled: %v", disabled.WriteYield)
	}

	cases := []Config{
		func() Config { c := cfg; c.HandlerMode = "threaded"; return c }(),
		func() Config { c := cfg; c.Codec = "xml"; return c }(),
		func() Config { c := cfg; c.MaxBufferBytes = 10; return c }(),
		func() Config { c := cfg; c.QueueCapacity = -1; return c }(),
	}
	for i, c := range cases {
		if err := c.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
}
