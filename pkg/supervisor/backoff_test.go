package supervisor

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{})

		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			32 * time.Second,
			60 * time.Second,
			60 * time.Second, // stays at max
		}

		for i, exp := range expected {
			base := b.Current()
			_ = b.Next()
			if base != exp {
				t.Errorf("attempt %d: base = %v, want %v", i, base, exp)
			}
		}
		if b.Attempts() != len(expected) {
			t.Errorf("Attempts = %d, want %d", b.Attempts(), len(expected))
		}
	})

	t.Run("JitterBounds", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{Initial: 100 * time.Millisecond, Max: 100 * time.Millisecond})
		for i := 0; i < 20; i++ {
			d := b.Next()
			if d < 100*time.Millisecond || d > 125*time.Millisecond {
				t.Errorf("delay %v out of [100ms, 125ms]", d)
			}
		}
	})

	t.Run("NoJitter", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{Initial: 10 * time.Millisecond, Jitter: -1})
		if d := b.Next(); d != 10*time.Millisecond {
			t.Errorf("delay = %v, want 10ms", d)
		}
		if d := b.Next(); d != 20*time.Millisecond {
			t.Errorf("delay = %v, want 20ms", d)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{})
		for i := 0; i < 5; i++ {
			b.Next()
		}
		b.Reset()
		if b.Current() != InitialBackoff {
			t.Errorf("Current after reset = %v, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts after reset = %d, want 0", b.Attempts())
		}
	})

	t.Run("FixedInterval", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{Initial: time.Second, Multiplier: 1, Jitter: -1})
		for i := 0; i < 4; i++ {
			if d := b.Next(); d != time.Second {
				t.Errorf("attempt %d: delay = %v, want 1s", i, d)
			}
		}
	})

	t.Run("MultiplierBelowOneUsesDefault", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{Initial: time.Second, Multiplier: 0.5, Jitter: -1})
		b.Next()
		if b.Current() != 2*time.Second {
			t.Errorf("Current = %v, want 2s", b.Current())
		}
	})

	t.Run("MaxBelowInitial", func(t *testing.T) {
		b := NewBackoff(BackoffConfig{Initial: 5 * time.Second, Max: time.Second, Jitter: -1})
		if d := b.Next(); d != 5*time.Second {
			t.Errorf("delay = %v, want 5s", d)
		}
		if d := b.Next(); d != 5*time.Second {
			t.Errorf("delay = %v, want 5s", d)
		}
	})
}
