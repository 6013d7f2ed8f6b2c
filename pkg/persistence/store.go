package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sync"
)

// ChecksumSize is the size of the trailing checksum in bytes.
const ChecksumSize = 4

// Store errors.
var (
	ErrNotFixedSize   = errors.New("record type has no fixed binary size")
	ErrRecordTooLarge = errors.New("record does not fit on device at offset")
)

// Checksum returns the CRC-32 (IEEE 802.3 polynomial) of data.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// Store saves and loads one record of type T at a fixed device offset.
// T must have a fixed binary size (no slices, strings or maps).
type Store[T any] struct {
	mu     sync.Mutex
	dev    Device
	offset int
	size   int
}

// NewStore creates a store for T at offset on dev.
func NewStore[T any](dev Device, offset int) (*Store[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return nil, ErrNotFixedSize
	}
	if offset < 0 || offset+size+ChecksumSize > dev.Size() {
		return nil, fmt.Errorf("%w: %d+%d bytes at offset %d, device has %d",
			ErrRecordTooLarge, size, ChecksumSize, offset, dev.Size())
	}
	return &Store[T]{dev: dev, offset: offset, size: size}, nil
}

// RecordSize returns the size of the record image, excluding the checksum.
func (s *Store[T]) RecordSize() int {
	return s.size
}

// ImageSize returns the number of device bytes the store occupies.
func (s *Store[T]) ImageSize() int {
	return s.size + ChecksumSize
}

// Load reads the stored image into rec. On checksum mismatch the current
// value of rec is saved as the new image and loaded is false.
func (s *Store[T]) Load(rec *T) (loaded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, s.size+ChecksumSize)
	for i := range buf {
		b, err := s.dev.ByteAt(s.offset + i)
		if err != nil {
			return false, fmt.Errorf("read byte %d: %w", s.offset+i, err)
		}
		buf[i] = b
	}

	data := buf[:s.size]
	stored := binary.LittleEndian.Uint32(buf[s.size:])
	if Checksum(data) != stored {
		if err := s.saveLocked(rec); err != nil {
			return false, fmt.Errorf("write defaults: %w", err)
		}
		return false, nil
	}

	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, rec); err != nil {
		return false, fmt.Errorf("decode record: %w", err)
	}
	return true, nil
}

// Save writes rec and its checksum, then commits the device.
func (s *Store[T]) Save(rec *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(rec)
}

func (s *Store[T]) saveLocked(rec *T) error {
	image, err := binary.Append(make([]byte, 0, s.size+ChecksumSize), binary.LittleEndian, rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	image = binary.LittleEndian.AppendUint32(image, Checksum(image))

	for i, b := range image {
		if err := s.dev.SetByte(s.offset+i, b); err != nil {
			return fmt.Errorf("write byte %d: %w", s.offset+i, err)
		}
	}
	return s.dev.Commit()
}
