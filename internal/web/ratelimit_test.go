package web

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("request over the limit was allowed")
	}

	// Other clients have their own bucket
	if !rl.allow("5.6.7.8") {
		t.Error("separate client denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := newRateLimiter(1, 10*time.Millisecond)

	if !rl.allow("k") {
		t.Fatal("first request denied")
	}
	if rl.allow("k") {
		t.Fatal("second request allowed within window")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.allow("k") {
		t.Error("request denied after window reset")
	}
}
