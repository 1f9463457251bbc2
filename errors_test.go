package remotecall

import (
	"errors"
	"strings"
	"testing"
)

func TestRemoteCallErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := wrapOSFailure(KindRemoteWriteFailure, 5, cause)
	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(err, cause) = false, want true")
	}
	if err.OSCode != 5 {
		t.Errorf("OSCode = %d, want 5", err.OSCode)
	}
	if err.Kind != KindRemoteWriteFailure {
		t.Errorf("Kind = %v, want KindRemoteWriteFailure", err.Kind)
	}
}

func TestRemoteCallErrorMessageIncludesOSCode(t *testing.T) {
	err := wrapOSFailure(KindRemoteAllocationFailure, 1455, errors.New("out of memory"))
	msg := err.Error()
	if msg == "" {
		t.Fatal("Error() returned empty string")
	}
	if !strings.Contains(msg, "1455") {
		t.Errorf("Error() = %q, want it to include os code 1455", msg)
	}
}

func TestSignatureMismatchErrorHasNoOSCode(t *testing.T) {
	err := newSignatureMismatchError("arity %d does not match %d", 2, 3)
	if err.OSCode != 0 {
		t.Errorf("OSCode = %d, want 0 for a host-detected error", err.OSCode)
	}
	if err.Kind != KindSignatureMismatch {
		t.Errorf("Kind = %v, want KindSignatureMismatch", err.Kind)
	}
}

func TestErrorKindString(t *testing.T) {
	if KindResolveFailure.String() != "ResolveFailure" {
		t.Errorf("KindResolveFailure.String() = %q", KindResolveFailure.String())
	}
	if ErrorKind(999).String() != "Unknown" {
		t.Errorf("unknown ErrorKind.String() = %q, want Unknown", ErrorKind(999).String())
	}
}
