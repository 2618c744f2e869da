package cmd

import "testing"

func TestAcquireLock_RoundTripsCleanly(t *testing.T) {
	t.Setenv("CRANE_HOME", t.TempDir())

	ok, err := AcquireLock()
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if !ok {
		t.Fatal("expected first AcquireLock to succeed")
	}

	if err := ReleaseLock(); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}

	// Lock file must be reusable once released.
	ok, err = AcquireLock()
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	if !ok {
		t.Fatal("expected AcquireLock to succeed again after release")
	}
	if err := ReleaseLock(); err != nil {
		t.Fatalf("ReleaseLock: %v", err)
	}
}

func TestReleaseLock_NoopWhenNotHeld(t *testing.T) {
	instanceLock = nil
	if err := ReleaseLock(); err != nil {
		t.Fatalf("ReleaseLock with no lock held should be a no-op, got: %v", err)
	}
}
