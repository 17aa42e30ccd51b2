package elfobj

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
)

// sectionBuffer accumulates fixed-layout ELF records (headers, symbol
// table entries, relocation entries) via struc, which packs a Go
// struct to its field's exact wire layout instead of hand-rolling
// binary.Write calls per field.
type sectionBuffer struct {
	buf bytes.Buffer
}

func newSectionBuffer() (*sectionBuffer, error) {
	return &sectionBuffer{}, nil
}

func (b *sectionBuffer) pack(v interface{}) error {
	return struc.PackWithOptions(&b.buf, v, &struc.Options{Order: binary.LittleEndian})
}

func (b *sectionBuffer) bytes() []byte {
	return b.buf.Bytes()
}

func (b *sectionBuffer) len() int {
	return b.buf.Len()
}

// padTo64 returns the number of zero padding bytes needed to bring n
// up to the next multiple of 64, spec §4.5's section alignment.
func padTo64(n int) int {
	const align = 64
	rem := n % align
	if rem == 0 {
		return 0
	}
	return align - rem
}
