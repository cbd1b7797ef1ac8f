package main

import (
	"context"
	"testing"
)

func TestValidatePort(t *testing.T) {
	for _, port := range []int{1, 8318, 65535} {
		if err := validatePort(port); err != nil {
			t.Fatalf("validatePort(%d): %v", port, err)
		}
	}
	for _, port := range []int{0, -1, 65536} {
		if err := validatePort(port); err == nil {
			t.Fatalf("expected validatePort(%d) to fail", port)
		}
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := run(ctx, []string{"-port", "0"}); err == nil {
		t.Fatalf("expected invalid port error")
	}
	if err := run(ctx, []string{"-unknown"}); err == nil {
		t.Fatalf("expected flag parse error")
	}
}
