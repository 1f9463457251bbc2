package remotecall

// RemoteExecutor drives one Batch through a target process end to end
// (spec.md ss4.4): resolve the two kernel32 exports every stub needs,
// allocate the return table and code region, assemble and write the stub,
// run it on a fresh remote thread, read the results back, and release every
// region it allocated regardless of where execution stopped.
type RemoteExecutor struct {
	ops ProcessOps
}

// NewRemoteExecutor binds an executor to a concrete ProcessOps. The same
// executor can run any number of batches against the same target.
func NewRemoteExecutor(ops ProcessOps) *RemoteExecutor {
	return &RemoteExecutor{ops: ops}
}

// Run executes every call in b in order and returns one ReturnRecord per
// call (spec.md ss4.4, ss8 S1-S4). A zero-length Batch returns (nil, nil)
// without touching the target (spec.md ss4.4 step 1).
func (e *RemoteExecutor) Run(b Batch) ([]ReturnRecord, error) {
	calls, err := b.validate()
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, nil
	}

	arch := e.ops.Arch()
	for _, cl := range calls {
		if err := ValidateConvention(arch, cl.conv); err != nil {
			return nil, err
		}
	}

	getLastError, err := e.resolveKernel32(arch, "GetLastError")
	if err != nil {
		return nil, err
	}
	setLastError, err := e.resolveKernel32(arch, "SetLastError")
	if err != nil {
		return nil, err
	}

	recSize := returnRecordSize(arch)
	tableSize := recSize * len(calls)

	log.WithFields(map[string]any{"calls": len(calls), "arch": arch}).Debug("allocating return table")
	table, err := allocGuarded(e.ops, tableSize, ProtectReadWrite)
	if err != nil {
		return nil, err
	}
	defer table.release()

	zero := make([]byte, tableSize)
	if err := e.ops.Write(table.Addr(), zero); err != nil {
		return nil, wrapOSFailure(KindRemoteWriteFailure, osCodeOf(err), err)
	}

	stub, err := assemblerFor(arch).Assemble(calls, remoteAddrs{
		ReturnTable:  table.Addr(),
		GetLastError: getLastError,
		SetLastError: setLastError,
	})
	if err != nil {
		return nil, err
	}

	log.WithField("stubBytes", len(stub)).Debug("allocating code region")
	code, err := allocGuarded(e.ops, len(stub), ProtectExecuteReadWrite)
	if err != nil {
		return nil, err
	}
	defer code.release()

	if err := e.ops.Write(code.Addr(), stub); err != nil {
		return nil, wrapOSFailure(KindRemoteWriteFailure, osCodeOf(err), err)
	}
	if err := e.ops.FlushInstructionCache(code.Addr(), len(stub)); err != nil {
		return nil, wrapOSFailure(KindRemoteWriteFailure, osCodeOf(err), err)
	}

	handle, err := e.ops.CreateThread(code.Addr())
	if err != nil {
		return nil, wrapOSFailure(KindThreadCreationFailure, osCodeOf(err), err)
	}
	thread := &threadGuard{ops: e.ops, handle: handle}
	defer thread.release()

	if err := e.ops.Wait(handle); err != nil {
		return nil, wrapOSFailure(KindThreadWaitFailure, osCodeOf(err), err)
	}

	buf := make([]byte, tableSize)
	if err := e.ops.Read(table.Addr(), buf); err != nil {
		return nil, wrapOSFailure(KindRemoteReadFailure, osCodeOf(err), err)
	}

	records := make([]ReturnRecord, len(calls))
	for i := range calls {
		records[i] = decodeReturnRecord(arch, buf, i*recSize)
	}

	if err := thread.release(); err != nil {
		log.WithError(err).Warn("failed to close remote thread handle")
	}
	if err := code.release(); err != nil {
		log.WithError(err).Warn("failed to free remote code region")
	}
	if err := table.release(); err != nil {
		log.WithError(err).Warn("failed to free remote return table")
	}

	return records, nil
}

func (e *RemoteExecutor) resolveKernel32(arch Arch, export string) (uintptr, error) {
	addr, err := e.ops.ResolveExport("kernel32.dll", export)
	if err != nil {
		return 0, wrapOSFailure(KindResolveFailure, osCodeOf(err), err)
	}
	return addr, nil
}
