package link

import (
	"golang.org/x/sys/unix"

	"github.com/tinylang/linkasm/section"
)

// Load re-tags the three page runs of l with their final protections:
// code becomes R+X, data becomes R, static data becomes R+W. It must
// be called at most once; a second call returns ErrAlreadyLoaded
// rather than silently repeating or skipping the re-tag (see
// DESIGN.md Open Question 1). Instruction-cache synchronization for
// the freshly-written executable code region is unix.Mprotect's
// responsibility on the platforms this module targets.
func (l *Linked) Load() error {
	if l.closed {
		return ErrClosed
	}
	if l.loaded {
		return ErrAlreadyLoaded
	}

	if err := protect(l.Region(section.Code), unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return err
	}
	if err := protect(l.Region(section.Data), unix.PROT_READ); err != nil {
		return err
	}
	if err := protect(l.Region(section.Static), unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return err
	}

	l.loaded = true
	return nil
}
