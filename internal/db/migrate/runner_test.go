package migrate

import (
	"errors"
	"testing"
)

func TestRun_EmptyDSN(t *testing.T) {
	if err := Run("", "up"); err == nil {
		t.Fatal("Run with empty DSN should return error")
	}
}

func TestRun_InvalidDirection(t *testing.T) {
	for _, direction := range []string{"", "sideways", "UP", "Down"} {
		if err := Run("postgres://localhost/test", direction); err == nil {
			t.Errorf("Run with direction %q should return error", direction)
		}
	}
}

func TestRun_InvalidDSN(t *testing.T) {
	if err := Run("invalid-dsn", "up"); err == nil {
		t.Error("Run with invalid DSN should return error")
	}
}

func TestErrNoChange_NeverSurfaced(t *testing.T) {
	// ErrNoChange is swallowed by Run; callers only see real failures.
	err := Run("postgres://localhost/test", "up")
	if err != nil && errors.Is(err, ErrNoChange) {
		t.Error("Run should not return ErrNoChange")
	}
}
