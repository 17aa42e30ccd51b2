package elfobj

import "errors"

var (
	// ErrUnsupportedHost is returned by Arch.elfMachine for an
	// architecture with no e_machine mapping. Write checks for AMD64
	// before it asks for e_machine, so Write reports such an
	// architecture as ErrUnsupportedRelocationTarget.
	ErrUnsupportedHost = errors.New("elfobj: unsupported host architecture")

	// ErrUnsupportedRelocationTarget is returned by Write for any
	// non-AMD64 target, whether or not the Assembly has relocations.
	// Per spec §4.4 this
	// writer covers AMD64 ELF emission only; AArch64 relocatable
	// objects are out of scope.
	ErrUnsupportedRelocationTarget = errors.New("elfobj: relocation emission is only supported for amd64 targets")

	// ErrUnsupportedRelocationKind is returned for a big-endian
	// RelocKind on AMD64, which has no R_X86_64_PC* equivalent.
	ErrUnsupportedRelocationKind = errors.New("elfobj: big-endian relocations are unsupported on amd64")

	// ErrExecutableNotImplemented is returned by WriteExecutable, a
	// declared stub: fully linked executable emission is out of scope
	// for this module (see spec §1's Non-goals).
	ErrExecutableNotImplemented = errors.New("elfobj: fully linked executable emission is not implemented")
)
