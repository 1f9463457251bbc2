package remotecall

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind distinguishes the error taxonomy from spec.md ss7. Every kind is
// carried by the one exported error type, RemoteCallError: callers
// errors.As against *RemoteCallError and switch on its Kind field to tell
// the failures apart.
type ErrorKind int

const (
	KindSignatureMismatch ErrorKind = iota
	KindUnsupportedConvention
	KindBatchShapeMismatch
	KindRemoteAllocationFailure
	KindRemoteWriteFailure
	KindRemoteReadFailure
	KindRemoteFreeFailure
	KindThreadCreationFailure
	KindThreadWaitFailure
	KindResolveFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindSignatureMismatch:
		return "SignatureMismatch"
	case KindUnsupportedConvention:
		return "UnsupportedConvention"
	case KindBatchShapeMismatch:
		return "BatchShapeMismatch"
	case KindRemoteAllocationFailure:
		return "RemoteAllocationFailure"
	case KindRemoteWriteFailure:
		return "RemoteWriteFailure"
	case KindRemoteReadFailure:
		return "RemoteReadFailure"
	case KindRemoteFreeFailure:
		return "RemoteFreeFailure"
	case KindThreadCreationFailure:
		return "ThreadCreationFailure"
	case KindThreadWaitFailure:
		return "ThreadWaitFailure"
	case KindResolveFailure:
		return "ResolveFailure"
	default:
		return "Unknown"
	}
}

// RemoteCallError is the concrete error type raised by this package. OSCode
// is the underlying OS error code when the failure crossed into a
// ProcessOps primitive; it is zero for errors detected purely host-side
// (SignatureMismatch, UnsupportedConvention, BatchShapeMismatch).
type RemoteCallError struct {
	Kind   ErrorKind
	OSCode uintptr
	cause  error
}

func (e *RemoteCallError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("remotecall: %s", e.Kind)
	}
	if e.OSCode != 0 {
		return fmt.Sprintf("remotecall: %s (os code %d): %v", e.Kind, e.OSCode, e.cause)
	}
	return fmt.Sprintf("remotecall: %s: %v", e.Kind, e.cause)
}

func (e *RemoteCallError) Unwrap() error { return e.cause }

// wrapOSFailure builds a RemoteCallError for a failed ProcessOps primitive,
// attaching the OS error code and a stack-annotated cause via pkg/errors so
// the original call site survives in logs even after the error crosses
// several layers of cleanup.
func wrapOSFailure(kind ErrorKind, osCode uintptr, cause error) *RemoteCallError {
	return &RemoteCallError{
		Kind:   kind,
		OSCode: osCode,
		cause:  errors.Wrapf(cause, "remotecall: %s", kind),
	}
}

func newSignatureMismatchError(format string, args ...any) *RemoteCallError {
	return &RemoteCallError{Kind: KindSignatureMismatch, cause: errors.Errorf(format, args...)}
}

func newUnsupportedConventionError(arch Arch, conv CallingConvention) *RemoteCallError {
	return &RemoteCallError{
		Kind:  KindUnsupportedConvention,
		cause: errors.Errorf("convention %s is not valid for arch %d", conv, arch),
	}
}

func newBatchShapeMismatchError(addrs, convs, args int) *RemoteCallError {
	return &RemoteCallError{
		Kind: KindBatchShapeMismatch,
		cause: errors.Errorf("addresses=%d conventions=%d argLists=%d must be equal",
			addrs, convs, args),
	}
}
