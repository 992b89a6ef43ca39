package definitions

import (
	"testing"
)

func TestIsDebugBuild(t *testing.T) {
	req := &DeploymentRequest{BuildFlags: []string{"-O2"}}
	if req.IsDebugBuild() {
		t.Errorf("Expected release build for flags %v", req.BuildFlags)
	}

	req.BuildFlags = []string{"-g"}
	if !req.IsDebugBuild() {
		t.Errorf("Expected -g to mark a debug build")
	}

	req.BuildFlags = []string{"--debug", "-O0"}
	if !req.IsDebugBuild() {
		t.Errorf("Expected --debug to mark a debug build")
	}
}

func TestShouldClearLog(t *testing.T) {
	// Explicit clear request.
	req := &DeploymentRequest{ClearLogs: true}
	if !req.ShouldClearLog() {
		t.Errorf("Expected explicit clear request honored")
	}

	// Launch with streaming implies a clear.
	req = &DeploymentRequest{Run: "com.example.app/.MainActivity", StreamLogs: true}
	if !req.ShouldClearLog() {
		t.Errorf("Expected launch+stream to imply a log clear")
	}

	// Launch without streaming does not.
	req = &DeploymentRequest{Run: "com.example.app/.MainActivity"}
	if req.ShouldClearLog() {
		t.Errorf("Expected no clear without streaming")
	}

	// Streaming without launch does not.
	req = &DeploymentRequest{StreamLogs: true}
	if req.ShouldClearLog() {
		t.Errorf("Expected no clear without a launch target")
	}
}
