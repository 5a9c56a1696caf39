package pmap

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// region is a growable, byte-addressed memory-mapped view over a single
// file. It is the leaf component of the core: every header slot, bucket,
// and entry field is read or written exclusively through the accessors
// below, never through a direct slice index, so the atomic/volatile
// semantics every slot needs are preserved everywhere.
//
// Two regions are opened per map: one for the bucket array file, one for
// the entry array file, both lock-free for readers.
type region struct {
	file *os.File
	data []byte
}

// openRegion opens (creating if necessary) the file at path and maps it.
// If the file is empty, it is grown to minSize first so the mapping is
// never attempted against a zero-length file (macOS mmap rejects that).
func openRegion(path string, minSize int64) (*region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pmap: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("pmap: stat %s: %w", path, err)
	}

	if fi.Size() < minSize {
		if err := f.Truncate(minSize); err != nil {
			_ = f.Close()

			return nil, fmt.Errorf("pmap: truncate %s: %w", path, err)
		}
	}

	r := &region{file: f}
	if err := r.remap(); err != nil {
		_ = f.Close()

		return nil, err
	}

	return r, nil
}

func (r *region) remap() error {
	fi, err := r.file.Stat()
	if err != nil {
		return fmt.Errorf("pmap: stat during remap: %w", err)
	}

	size := int(fi.Size())
	if size == 0 {
		return fmt.Errorf("pmap: refusing to mmap a zero-length file")
	}

	data, err := unix.Mmap(int(r.file.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("pmap: mmap: %w", err)
	}

	r.data = data

	return nil
}

// grow extends the backing file to newSize and remaps it. Existing byte
// offsets keep their meaning; newly exposed bytes read as zero, which is
// exactly what the +1-biased bucket/freeList encoding in header.go relies
// on for a correct initial state.
func (r *region) grow(newSize int64) error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("pmap: munmap before grow: %w", err)
	}

	if err := r.file.Truncate(newSize); err != nil {
		return fmt.Errorf("pmap: truncate during grow: %w", err)
	}

	return r.remap()
}

func (r *region) close() error {
	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("pmap: munmap: %w", err)
	}

	return r.file.Close()
}

func (r *region) len() int { return len(r.data) }

func (r *region) ptr32(off uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(&r.data[off]))
}

func (r *region) ptr64(off uint32) *uint64 {
	return (*uint64)(unsafe.Pointer(&r.data[off]))
}

func (r *region) loadU32(off uint32) uint32 {
	return atomic.LoadUint32(r.ptr32(off))
}

func (r *region) storeU32(off uint32, v uint32) {
	atomic.StoreUint32(r.ptr32(off), v)
}

func (r *region) loadI32(off uint32) int32 {
	return int32(atomic.LoadUint32(r.ptr32(off)))
}

func (r *region) storeI32(off uint32, v int32) {
	atomic.StoreUint32(r.ptr32(off), uint32(v))
}

func (r *region) loadI64(off uint32) int64 {
	return int64(atomic.LoadUint64(r.ptr64(off)))
}

func (r *region) storeI64(off uint32, v int64) {
	atomic.StoreUint64(r.ptr64(off), uint64(v))
}

func (r *region) addI64(off uint32, delta int64) int64 {
	return int64(atomic.AddUint64(r.ptr64(off), uint64(delta)))
}

// casI32 compares-and-swaps the int32 field at off. Used exclusively by the
// write-lock's PID slot in lock.go.
func (r *region) casI32(off uint32, old, new int32) bool {
	return atomic.CompareAndSwapUint32(r.ptr32(off), uint32(old), uint32(new))
}

// copyBytes copies n bytes from srcOff to dstOff within the same region.
// Used by Insert's update branch (mutate.go) to back up an entry's
// {key,value} and by the symmetric restore in recover.go.
func (r *region) copyBytes(dstOff, srcOff, n uint32) {
	copy(r.data[dstOff:dstOff+n], r.data[srcOff:srcOff+n])
}

func (r *region) bytesAt(off, n uint32) []byte {
	return r.data[off : off+n]
}
