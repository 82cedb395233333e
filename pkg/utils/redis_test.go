package utils

import "testing"

func TestBurstScriptsCompile(t *testing.T) {
	// Compile-time smoke test: scripts should be initialized.
	if burstAcquireScript == nil || burstReleaseScript == nil {
		t.Fatalf("expected scripts to be initialized")
	}
}
