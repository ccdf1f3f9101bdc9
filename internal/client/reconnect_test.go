package client

import (
	"testing"
	"time"
)

func TestReconnectPolicyWaitElapses(t *testing.T) {
	p := ReconnectPolicy{Delay: 20 * time.Millisecond}
	done := make(chan struct{})

	start := time.Now()
	if !p.Wait(done) {
		t.Fatal("Wait returned false without stop signal")
	}
	if elapsed := time.Since(start); elapsed < p.Delay {
		t.Errorf("Wait returned after %v, want at least %v", elapsed, p.Delay)
	}
}

func TestReconnectPolicyWaitCancelled(t *testing.T) {
	p := ReconnectPolicy{Delay: time.Hour}
	done := make(chan struct{})
	close(done)

	if p.Wait(done) {
		t.Fatal("Wait ignored stop signal")
	}
}

func TestDefaultReconnectPolicyIsFiveSeconds(t *testing.T) {
	if DefaultReconnectPolicy.Delay != 5*time.Second {
		t.Errorf("default delay = %v, want 5s", DefaultReconnectPolicy.Delay)
	}
}
