package main

import (
	"strings"
	"testing"
)

// TestBuildInfo tests that version fields always have a value.
func TestBuildInfo(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		get  func() string
	}{
		{"version", getVersion},
		{"commit", getCommit},
		{"date", getDate},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if tc.get() == "" {
				t.Errorf("%s returned empty string", tc.name)
			}
		})
	}
}

// TestGetCommitIsShort tests that commit hashes are at most seven characters.
func TestGetCommitIsShort(t *testing.T) {
	t.Parallel()

	if c := getCommit(); c != "unknown" && len(c) > 7 {
		t.Errorf("commit %q is longer than 7 characters", c)
	}
}

// TestNewVersionCmd tests the version command output.
func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := executeCommand(t, NewVersionCmd())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"adsaudit version", "commit:", "built:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
