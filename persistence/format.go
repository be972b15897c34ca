// Package persistence serializes classifier state to a compressed,
// self-describing binary archive and back.
//
// Archive layout: a fixed 64-byte little-endian header followed by a
// compressed body. The body is a sequence of named sections
// (nameLen:u16, name, kind:u8, byteLen:u32, payload), so fields are
// identified by name rather than position. Readers skip sections they do not
// recognize, which keeps old readers compatible with newer archives.
package persistence

import (
	"errors"
	"fmt"
)

const (
	// MagicNumber identifies fewshot model archives (ASCII: "FNN1").
	MagicNumber = 0x464E4E31
	// Version is the current archive format version (v1.0.0).
	Version = 0x00010000

	// headerSize is the fixed size of the archive header in bytes.
	headerSize = 64
)

// Compression identifies the body compression algorithm.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionLZ4  Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(c))
	}
}

// Section kinds.
const (
	sectionKindRaw     = 1 // raw little-endian bytes
	sectionKindEncoded = 2 // encoded with the codec named in the header
)

// Section names. Unknown names are skipped on load.
const (
	sectionShape       = "shape"
	sectionEmbeddings  = "embeddings"
	sectionLabels      = "labels"
	sectionHyperparams = "hyperparams"
)

var (
	// ErrCorrupt is the root of all archive decoding failures. Callers
	// match with errors.Is.
	ErrCorrupt = errors.New("corrupt model archive")

	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported archive version")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrUnknownCodec       = errors.New("unknown codec")
)

// FileHeader is the 64-byte header at the start of every model archive.
type FileHeader struct {
	Magic        uint32
	Version      uint32
	Compression  uint8
	Padding1     [3]byte
	SectionCount uint32
	RawSize      uint64 // uncompressed body size
	BodySize     uint64 // compressed body size
	Checksum     uint32 // CRC32 (IEEE) of the compressed body
	Padding2     [4]byte
	CodecName    [16]byte // zero-padded codec name for encoded sections
	Reserved     [8]byte
}

// ChecksumMismatchError is returned when the body checksum does not match
// the header. It unwraps to ErrCorrupt.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

func corrupt(cause error) error {
	return fmt.Errorf("%w: %w", ErrCorrupt, cause)
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
