package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErasedByte is the value of a never-written storage cell.
const ErasedByte = 0xFF

// Device errors.
var (
	ErrOutOfRange = errors.New("offset out of device range")
)

// Device is a raw byte-addressable storage device.
//
// SetByte may buffer; data is only guaranteed to survive a power cycle
// after Commit returns nil.
type Device interface {
	ByteAt(offset int) (byte, error)
	SetByte(offset int, value byte) error
	Commit() error
	Size() int
}

// MemDevice is an in-memory Device. Writes go to a working buffer; Commit
// copies it to the committed image, which is what Reload restores.
type MemDevice struct {
	mu        sync.Mutex
	working   []byte
	committed []byte
	commits   int
}

// NewMemDevice creates an erased in-memory device of the given size.
func NewMemDevice(size int) *MemDevice {
	d := &MemDevice{
		working:   make([]byte, size),
		committed: make([]byte, size),
	}
	for i := range d.working {
		d.working[i] = ErasedByte
		d.committed[i] = ErasedByte
	}
	return d
}

// ByteAt returns the byte at offset.
func (d *MemDevice) ByteAt(offset int) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < 0 || offset >= len(d.working) {
		return 0, ErrOutOfRange
	}
	return d.working[offset], nil
}

// SetByte writes a byte at offset into the working buffer.
func (d *MemDevice) SetByte(offset int, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < 0 || offset >= len(d.working) {
		return ErrOutOfRange
	}
	d.working[offset] = value
	return nil
}

// Commit makes the working buffer the committed image.
func (d *MemDevice) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.committed, d.working)
	d.commits++
	return nil
}

// Size returns the device size in bytes.
func (d *MemDevice) Size() int {
	return len(d.working)
}

// Reload discards uncommitted writes, as a power cycle would.
func (d *MemDevice) Reload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.working, d.committed)
}

// Commits returns how many times Commit was called.
func (d *MemDevice) Commits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.commits
}

// Snapshot returns a copy of the committed image.
func (d *MemDevice) Snapshot() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.committed))
	copy(out, d.committed)
	return out
}

// FileDevice emulates an EEPROM with a file. The whole image is held in
// memory; Commit rewrites the file atomically.
type FileDevice struct {
	mu   sync.Mutex
	path string
	buf  []byte
}

// OpenFileDevice opens or creates a file-backed device of the given size.
// A missing file reads as erased; a short file is padded with erased bytes.
func OpenFileDevice(path string, size int) (*FileDevice, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid device size %d", size)
	}

	buf := make([]byte, size)
	for i := range buf {
		buf[i] = ErasedByte
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read storage %s: %w", path, err)
	}
	copy(buf, data)

	return &FileDevice{path: path, buf: buf}, nil
}

// ByteAt returns the byte at offset.
func (d *FileDevice) ByteAt(offset int) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < 0 || offset >= len(d.buf) {
		return 0, ErrOutOfRange
	}
	return d.buf[offset], nil
}

// SetByte writes a byte at offset. The change is not durable until Commit.
func (d *FileDevice) SetByte(offset int, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offset < 0 || offset >= len(d.buf) {
		return ErrOutOfRange
	}
	d.buf[offset] = value
	return nil
}

// Commit writes the image to a temporary file and renames it over the
// backing file.
func (d *FileDevice) Commit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(d.buf); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, d.path)
}

// Size returns the device size in bytes.
func (d *FileDevice) Size() int {
	return len(d.buf)
}

// Path returns the backing file path.
func (d *FileDevice) Path() string {
	return d.path
}

// Compile-time interface satisfaction checks.
var (
	_ Device = (*MemDevice)(nil)
	_ Device = (*FileDevice)(nil)
)
