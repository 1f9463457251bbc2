package remotecall

import "github.com/samber/lo"

// Batch is the triple of equal-length sequences spec.md ss3 describes:
// addresses, the convention each address is called under, and the argument
// list for each call. N = len(Addresses) must equal len(Conventions) and
// len(ArgLists); N == 0 is valid and short-circuits before touching the
// target process.
type Batch struct {
	Addresses   []uintptr
	Conventions []CallingConvention
	ArgLists    []ArgList
}

// call bundles one element of a Batch together for the assembler, which
// does not need to see the three parallel slices once it has zipped them.
type call struct {
	addr uintptr
	conv CallingConvention
	args ArgList
}

// validate checks the Batch's shape invariant (spec.md ss7,
// BatchShapeMismatch) and returns the zipped per-call view.
func (b Batch) validate() ([]call, error) {
	n := len(b.Addresses)
	if len(b.Conventions) != n || len(b.ArgLists) != n {
		return nil, newBatchShapeMismatchError(len(b.Addresses), len(b.Conventions), len(b.ArgLists))
	}
	if n == 0 {
		return nil, nil
	}
	triples := lo.Zip3(b.Addresses, b.Conventions, b.ArgLists)
	return lo.Map(triples, func(t lo.Tuple3[uintptr, CallingConvention, ArgList], _ int) call {
		return call{addr: t.A, conv: t.B, args: t.C}
	}), nil
}

// N reports the batch length without validating shape; callers that only
// need the fast empty-batch check (spec.md ss4.4 step 1) use this instead of
// validate to avoid allocating the zipped view.
func (b Batch) N() int { return len(b.Addresses) }
