package remotecall

// CallResult is the typed outcome of one Signature-checked call: Value is
// the decoded return field for R, Raw is the full ReturnRecord the stub
// wrote (SPEC_FULL.md ss D) so a caller who also needs LastError, or a
// field R didn't select, doesn't have to re-run the call untyped.
type CallResult[R Result] struct {
	Value R
	Raw   ReturnRecord
}

// Signature pins the checked shape of a typed remote call: its return type
// R, the calling convention its callee expects, and the declared tag of
// each parameter in order (spec.md ss4.1's "declared callee signature").
//
// A C++ template can decompose a function pointer type into its parameter
// pack at compile time; a Go type parameter list cannot express "one type
// per positional argument" the same way. spec.md ss9's own fallback for
// languages without that metaprogramming is to carry a runtime signature
// descriptor and validate it at batch submission time instead -- Params is
// that descriptor, and TypedFacade checks it before Run ever sees the
// batch, so a mismatch (S6: wrong arity, or an argument classified under a
// tag the signature didn't declare) is rejected before any remote
// interaction, never surfaced as a target-side failure.
type Signature[R Result] struct {
	Convention CallingConvention
	Params     []ArgTag
}

// TypedFacade calls addr as a function matching sig. args must already be
// classified into ArgRecords by the caller (e.g. via ArgInt32), one per
// entry in sig.Params and in the same order; TypedFacade verifies that
// shape before doing anything else, then decodes the return value as R
// (spec.md ss4.1, ss4.5). It is a thin wrapper over RemoteExecutor.Run that
// saves a caller the boilerplate of building and unpacking a one-element
// Batch.
func TypedFacade[R Result](e *RemoteExecutor, addr uintptr, sig Signature[R], args ...ArgRecord) (CallResult[R], error) {
	if err := checkSignature(sig.Params, args); err != nil {
		return CallResult[R]{}, err
	}
	records, err := e.Run(Batch{
		Addresses:   []uintptr{addr},
		Conventions: []CallingConvention{sig.Convention},
		ArgLists:    []ArgList{args},
	})
	if err != nil {
		return CallResult[R]{}, err
	}
	return CallResult[R]{Value: decodeResult[R](records[0]), Raw: records[0]}, nil
}

// checkSignature enforces spec.md ss4.1's arity and per-position
// convertibility checks: args must have exactly one entry per declared
// param, and each entry's tag must match the declared tag at that
// position. Go's constructors (ArgInt32, ArgFloat64, ...) already perform
// the "construct the declared type before classification" step the spec
// describes, so the remaining check here is that the caller built the
// ArgRecord the signature actually declares, not some other shape.
func checkSignature(params []ArgTag, args []ArgRecord) error {
	if len(args) != len(params) {
		return newSignatureMismatchError("arity %d does not match declared arity %d", len(args), len(params))
	}
	for i, want := range params {
		if got := args[i].Tag(); got != want {
			return newSignatureMismatchError("argument %d has tag %s, want declared tag %s", i, got, want)
		}
	}
	return nil
}

// MultiCall accumulates calls into a single Batch so they run as one remote
// thread (spec.md ss4.4 RemoteExecutor, SPEC_FULL.md ss D Reset). Add
// returns the builder so calls chain; Call runs the accumulated batch
// without clearing it, so a caller can inspect it again or Add more before
// the next Call.
type MultiCall struct {
	exec  *RemoteExecutor
	batch Batch
}

// NewMultiCall creates an empty builder bound to e.
func NewMultiCall(e *RemoteExecutor) *MultiCall {
	return &MultiCall{exec: e}
}

// Add appends one call to the batch and returns m for chaining.
func (m *MultiCall) Add(addr uintptr, conv CallingConvention, args ...ArgRecord) *MultiCall {
	m.batch.Addresses = append(m.batch.Addresses, addr)
	m.batch.Conventions = append(m.batch.Conventions, conv)
	m.batch.ArgLists = append(m.batch.ArgLists, ArgList(args))
	return m
}

// AddTyped is Add's signature-checked counterpart (spec.md ss4.1:
// "MultiCall::Add<Signature>(...)"): it validates args against params
// before queuing the call, returning a SignatureMismatch error -- and
// leaving the batch untouched -- instead of queuing a call whose shape
// disagrees with the declared signature.
func (m *MultiCall) AddTyped(addr uintptr, conv CallingConvention, params []ArgTag, args ...ArgRecord) (*MultiCall, error) {
	if err := checkSignature(params, args); err != nil {
		return m, err
	}
	return m.Add(addr, conv, args...), nil
}

// Call runs every accumulated call as one batch and returns one
// ReturnRecord per call, in the order Added.
func (m *MultiCall) Call() ([]ReturnRecord, error) {
	return m.exec.Run(m.batch)
}

// Reset discards the accumulated batch so the builder can be reused
// (SPEC_FULL.md ss D) without allocating a new MultiCall.
func (m *MultiCall) Reset() {
	m.batch = Batch{}
}

// N reports how many calls are currently queued.
func (m *MultiCall) N() int { return m.batch.N() }
