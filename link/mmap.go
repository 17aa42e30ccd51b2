package link

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PageSize is the platform page size this module maps in units of.
// The spec's "page" is platform-determined; on every host this module
// targets (linux/amd64, linux/arm64) that is 4 KiB.
const PageSize = 4096

// ceilPage rounds n up to the nearest multiple of PageSize, matching
// the teacher's inline `(size + pageSize - 1) & ^(pageSize - 1)` and
// original_source/arch.cpp's up_to_nearest_page.
func ceilPage(n int) int {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// mapAnon acquires a fresh anonymous, private virtual mapping of
// nBytes (already assumed page-aligned), initially readable and
// writable so the linker can copy section bytes in before Load
// narrows the permissions. Grounded on the teacher's
// hotreload_unix.go AllocateExecutablePage, generalized from raw
// syscall.Syscall6(SYS_MMAP, ...) to golang.org/x/sys/unix.
func mapAnon(nBytes int) ([]byte, error) {
	if nBytes == 0 {
		// mmap(0) is both unnecessary and, on some kernels, an error;
		// an empty Assembly still needs a valid (zero-length) mapping.
		return []byte{}, nil
	}
	mem, err := unix.Mmap(-1, 0, nBytes, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMappingFailed, err)
	}
	return mem, nil
}

// unmap releases a mapping acquired by mapAnon. Grounded on the
// teacher's FreePage (SYS_MUNMAP), generalized to unix.Munmap.
func unmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("link: munmap failed: %w", err)
	}
	return nil
}

// protect re-tags the page run mem[:] with prot. Grounded on
// original_source/arch.cpp's memory::tag, generalized to unix.Mprotect.
func protect(mem []byte, prot int) error {
	if len(mem) == 0 {
		return nil
	}
	if err := unix.Mprotect(mem, prot); err != nil {
		return fmt.Errorf("link: mprotect failed: %w", err)
	}
	return nil
}
