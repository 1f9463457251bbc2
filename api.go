package remotecall

// Call invokes one function in the target and returns its raw
// ReturnRecord, with no compile-time type checking of the result (spec.md
// ss6 PublicAPI). Prefer TypedFacade when R is known at the call site.
func Call(e *RemoteExecutor, addr uintptr, conv CallingConvention, args ...ArgRecord) (ReturnRecord, error) {
	records, err := e.Run(Batch{
		Addresses:   []uintptr{addr},
		Conventions: []CallingConvention{conv},
		ArgLists:    []ArgList{args},
	})
	if err != nil {
		return ReturnRecord{}, err
	}
	return records[0], nil
}

// CallMulti runs an explicitly constructed Batch and returns one
// ReturnRecord per element, in order (spec.md ss6 PublicAPI). Use MultiCall
// instead when calls are assembled incrementally rather than all at once.
func CallMulti(e *RemoteExecutor, b Batch) ([]ReturnRecord, error) {
	return e.Run(b)
}

// CallExport resolves export by (module, name) inside the target via e's
// ProcessOps and calls it with args, returning its raw ReturnRecord
// (SPEC_FULL.md ss D, grounded on hadesmem's call-by-export convenience
// overloads). It performs one extra round trip to resolve the address
// compared to Call, so a caller making the same call repeatedly should
// resolve once and reuse the address instead.
func CallExport(e *RemoteExecutor, module, name string, conv CallingConvention, args ...ArgRecord) (ReturnRecord, error) {
	addr, err := e.ops.ResolveExport(module, name)
	if err != nil {
		return ReturnRecord{}, wrapOSFailure(KindResolveFailure, osCodeOf(err), err)
	}
	return Call(e, addr, conv, args...)
}
