package gateway

import (
	"testing"
	"time"
)

func TestTokenBucketBurstThenThrottle(t *testing.T) {
	l := NewTokenBucketLimiter(100, 3)

	// 突发额度内不阻塞
	start := time.Now()
	for i := 0; i < 3; i++ {
		l.Wait(1)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("burst should not block, took %v", elapsed)
	}

	// 超过突发额度后需要等令牌
	start = time.Now()
	l.Wait(1)
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("expected throttling, took %v", elapsed)
	}
}

func TestTokenBucketWeightedCost(t *testing.T) {
	l := NewTokenBucketLimiter(100, 4)

	// 一次重调用抵多次轻调用
	start := time.Now()
	l.Wait(2)
	l.Wait(2)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("burst should cover two weighted calls, took %v", elapsed)
	}

	start = time.Now()
	l.Wait(2)
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("expected throttling after budget spent, took %v", elapsed)
	}
}

func TestTokenBucketDefaults(t *testing.T) {
	l := NewTokenBucketLimiter(0, 0)
	if l.rate != 1 || l.burst != 1 {
		t.Fatalf("defaults not applied: rate=%v burst=%d", l.rate, l.burst)
	}

	// 非法权重按 1 计
	start := time.Now()
	l.Wait(0)
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("zero cost should charge the default, took %v", elapsed)
	}
}
