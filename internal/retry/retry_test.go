package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Factor:       1,
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds on the first attempt", func(t *testing.T) {
		calls := 0
		result := Do(ctx, fastConfig(3), func() error {
			calls++
			return nil
		})
		if result.Err != nil || result.Attempts != 1 || calls != 1 {
			t.Fatalf("result = %+v, calls = %d", result, calls)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		result := Do(ctx, fastConfig(3), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		if result.Err != nil || result.Attempts != 3 {
			t.Fatalf("result = %+v", result)
		}
	})

	t.Run("exhausts attempts and keeps the last error", func(t *testing.T) {
		calls := 0
		result := Do(ctx, fastConfig(2), func() error {
			calls++
			return errors.New("still broken")
		})
		if result.Err == nil || result.Attempts != 2 || calls != 2 {
			t.Fatalf("result = %+v, calls = %d", result, calls)
		}
	})

	t.Run("permanent errors stop immediately", func(t *testing.T) {
		calls := 0
		result := Do(ctx, fastConfig(5), func() error {
			calls++
			return Permanent(errors.New("bad request"))
		})
		if calls != 1 || result.Attempts != 1 {
			t.Fatalf("result = %+v, calls = %d", result, calls)
		}
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		calls := 0
		result := Do(cancelCtx, fastConfig(10), func() error {
			calls++
			cancel()
			return errors.New("transient")
		})
		if !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("err = %v", result.Err)
		}
		if calls != 1 {
			t.Fatalf("calls = %d", calls)
		}
	})
}

func TestDoWithValue(t *testing.T) {
	calls := 0
	value, result := DoWithValue(context.Background(), fastConfig(3), func() (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if value != 42 || result.Err != nil || result.Attempts != 2 {
		t.Fatalf("value = %d, result = %+v", value, result)
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("boom")

	if !IsPermanent(Permanent(base)) {
		t.Fatal("Permanent not detected")
	}
	if IsPermanent(base) {
		t.Fatal("plain error treated as permanent")
	}
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) should be nil")
	}
	if !errors.Is(Permanent(base), base) {
		t.Fatal("Permanent should unwrap to the base error")
	}
}
