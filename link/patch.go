package link

import (
	"encoding/binary"
	"fmt"

	"github.com/tinylang/linkasm/asmfmt"
)

// applyReloc resolves and patches a single relocation, implementing
// spec §4.2. Let S be the symbol's absolute address, R the address
// immediately past the field to patch (reloc.Section base +
// reloc.Offset), and D = S - R the signed displacement. The field
// occupies the Width() bytes at R-Width, encoded per reloc.Kind's
// byte order once D is checked against its kind's valid range.
func (l *Linked) applyReloc(reloc asmfmt.Reloc) error {
	S, ok := l.defs[reloc.Sym]
	if !ok {
		return ErrUndefinedSymbol
	}

	R := l.Addr(reloc.Section, reloc.Offset)
	D := int64(S) - int64(R)

	width := reloc.Kind.Width()
	if err := checkRange(reloc.Kind, D); err != nil {
		return err
	}

	region := l.Region(reloc.Section)
	fieldEnd := reloc.Offset
	fieldStart := fieldEnd - width
	if fieldStart < 0 || fieldEnd > len(region) {
		return fmt.Errorf("link: relocation field [%d:%d) out of bounds for %s section of size %d",
			fieldStart, fieldEnd, reloc.Section, len(region))
	}
	field := region[fieldStart:fieldEnd]

	order := byteOrder(reloc.Kind)
	switch width {
	case 1:
		field[0] = byte(D)
	case 2:
		order.PutUint16(field, uint16(D))
	case 4:
		order.PutUint32(field, uint32(D))
	case 8:
		order.PutUint64(field, uint64(D))
	}
	return nil
}

// checkRange enforces the exact signed-magnitude bounds spec §4.2
// documents, correcting the original C++'s 32-bit check
// (`diff > 0xffffffffl`, which conflates the signed and unsigned upper
// bounds) to the correct `diff > 0x7fffffff`. The 64-bit variants are
// unchecked, matching spec.
func checkRange(kind asmfmt.RelocKind, d int64) error {
	switch kind {
	case asmfmt.REL8:
		if d < -128 || d > 127 {
			return ErrDisplacementOutOfRange
		}
	case asmfmt.REL16LE, asmfmt.REL16BE:
		if d < -32768 || d > 32767 {
			return ErrDisplacementOutOfRange
		}
	case asmfmt.REL32LE, asmfmt.REL32BE:
		if d < -0x80000000 || d > 0x7fffffff {
			return ErrDisplacementOutOfRange
		}
	case asmfmt.REL64LE, asmfmt.REL64BE:
		// full i64 range, unchecked
	}
	return nil
}

func byteOrder(kind asmfmt.RelocKind) binary.ByteOrder {
	if kind.BigEndian() {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
