package persistence

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/fewshot/codec"
)

// Hyperparams are the tunables persisted alongside the samples.
// JSON field names are the stable on-disk contract.
type Hyperparams struct {
	NNeighbors          int     `json:"n_neighbors"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	MaxSamplesPerClass  int     `json:"max_samples_per_class"`
	EmbeddingDim        int     `json:"embedding_dim"`
}

// Model is the serializable classifier state: the active embedding matrix,
// the parallel label array, and the hyperparameters.
type Model struct {
	Embeddings []float32 // Count*Dim, row-major
	Labels     []string
	Count      int
	Dim        int
	Params     Hyperparams
}

// Options configure archive encoding.
type Options struct {
	// Compression selects the body compression algorithm.
	Compression Compression

	// Codec encodes the structured sections (labels, hyperparams).
	// Its name is recorded in the header so readers can select it.
	Codec codec.Codec
}

// DefaultOptions are used where no explicit options are given.
var DefaultOptions = Options{
	Compression: CompressionZstd,
	Codec:       codec.Default,
}

// Encode serializes m into archive bytes.
func Encode(m *Model, optFns ...func(o *Options)) ([]byte, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}

	var body bytes.Buffer
	sections := 0

	shape := make([]byte, 8)
	binary.LittleEndian.PutUint32(shape[0:], uint32(m.Count))
	binary.LittleEndian.PutUint32(shape[4:], uint32(m.Dim))
	writeSection(&body, sectionShape, sectionKindRaw, shape)
	sections++

	writeSection(&body, sectionEmbeddings, sectionKindRaw, float32Bytes(m.Embeddings))
	sections++

	labelData, err := opts.Codec.Marshal(m.Labels)
	if err != nil {
		return nil, err
	}
	writeSection(&body, sectionLabels, sectionKindEncoded, labelData)
	sections++

	paramData, err := opts.Codec.Marshal(m.Params)
	if err != nil {
		return nil, err
	}
	writeSection(&body, sectionHyperparams, sectionKindEncoded, paramData)
	sections++

	raw := body.Bytes()
	compressed, compression, err := compress(raw, opts.Compression)
	if err != nil {
		return nil, err
	}

	header := FileHeader{
		Magic:        MagicNumber,
		Version:      Version,
		Compression:  uint8(compression),
		SectionCount: uint32(sections),
		RawSize:      uint64(len(raw)),
		BodySize:     uint64(len(compressed)),
		Checksum:     crc32.ChecksumIEEE(compressed),
	}
	copy(header.CodecName[:], opts.Codec.Name())

	out := bytes.NewBuffer(make([]byte, 0, headerSize+len(compressed)))
	if err := binary.Write(out, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	out.Write(compressed)
	return out.Bytes(), nil
}

// Decode parses archive bytes. defaults seed the hyperparameters so fields
// missing from the archive fall back to the currently configured values.
func Decode(data []byte, defaults Hyperparams) (*Model, error) {
	if len(data) < headerSize {
		return nil, corruptf("archive truncated: %d bytes", len(data))
	}

	var header FileHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, corrupt(err)
	}
	if header.Magic != MagicNumber {
		return nil, corrupt(ErrInvalidMagic)
	}
	if header.Version != Version {
		return nil, corrupt(ErrInvalidVersion)
	}

	compressed := data[headerSize:]
	if uint64(len(compressed)) != header.BodySize {
		return nil, corruptf("body size mismatch: header %d, got %d", header.BodySize, len(compressed))
	}
	if actual := crc32.ChecksumIEEE(compressed); actual != header.Checksum {
		return nil, &ChecksumMismatchError{Expected: header.Checksum, Actual: actual}
	}

	raw, err := decompress(compressed, Compression(header.Compression), header.RawSize)
	if err != nil {
		return nil, err
	}

	codecName := string(bytes.TrimRight(header.CodecName[:], "\x00"))
	c, ok := codec.ByName(codecName)
	if !ok {
		return nil, corrupt(ErrUnknownCodec)
	}

	sections, err := readSections(raw)
	if err != nil {
		return nil, err
	}

	shape, ok := sections[sectionShape]
	if !ok || len(shape) != 8 {
		return nil, corruptf("missing or malformed %s section", sectionShape)
	}
	count := int(binary.LittleEndian.Uint32(shape[0:]))
	dim := int(binary.LittleEndian.Uint32(shape[4:]))
	if count < 0 || dim <= 0 {
		return nil, corruptf("invalid shape: count=%d dim=%d", count, dim)
	}

	embData, ok := sections[sectionEmbeddings]
	if !ok {
		return nil, corruptf("missing %s section", sectionEmbeddings)
	}
	if len(embData) != count*dim*4 {
		return nil, corruptf("embeddings size mismatch: want %d bytes, got %d", count*dim*4, len(embData))
	}
	embeddings := bytesFloat32(embData)

	labelData, ok := sections[sectionLabels]
	if !ok {
		return nil, corruptf("missing %s section", sectionLabels)
	}
	var labels []string
	if err := c.Unmarshal(labelData, &labels); err != nil {
		return nil, corrupt(err)
	}
	if len(labels) != count {
		return nil, corruptf("label count mismatch: want %d, got %d", count, len(labels))
	}

	params := defaults
	if paramData, ok := sections[sectionHyperparams]; ok {
		if err := c.Unmarshal(paramData, &params); err != nil {
			return nil, corrupt(err)
		}
	}
	// The shape section is authoritative for the stored matrix.
	params.EmbeddingDim = dim

	return &Model{
		Embeddings: embeddings,
		Labels:     labels,
		Count:      count,
		Dim:        dim,
		Params:     params,
	}, nil
}

func writeSection(buf *bytes.Buffer, name string, kind uint8, payload []byte) {
	var hdr [2]byte
	binary.LittleEndian.PutUint16(hdr[:], uint16(len(name)))
	buf.Write(hdr[:])
	buf.WriteString(name)
	buf.WriteByte(kind)

	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(payload)))
	buf.Write(size[:])
	buf.Write(payload)
}

func readSections(raw []byte) (map[string][]byte, error) {
	sections := make(map[string][]byte, 4)
	off := 0
	for off < len(raw) {
		if off+2 > len(raw) {
			return nil, corruptf("truncated section header at offset %d", off)
		}
		nameLen := int(binary.LittleEndian.Uint16(raw[off:]))
		off += 2
		if off+nameLen+5 > len(raw) {
			return nil, corruptf("truncated section header at offset %d", off)
		}
		name := string(raw[off : off+nameLen])
		off += nameLen
		off++ // kind byte; payload interpretation is driven by name
		size := int(binary.LittleEndian.Uint32(raw[off:]))
		off += 4
		if off+size > len(raw) {
			return nil, corruptf("truncated section %q", name)
		}
		sections[name] = raw[off : off+size]
		off += size
	}
	return sections, nil
}

func float32Bytes(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func bytesFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

func compress(raw []byte, compression Compression) ([]byte, Compression, error) {
	switch compression {
	case CompressionNone:
		return raw, CompressionNone, nil

	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, 0, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, make([]byte, 0, len(raw))), CompressionZstd, nil

	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			// Incompressible; store the body as-is.
			return raw, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil

	default:
		return nil, 0, ErrUnknownCompression
	}
}

func decompress(body []byte, compression Compression, rawSize uint64) ([]byte, error) {
	switch compression {
	case CompressionNone:
		if uint64(len(body)) != rawSize {
			return nil, corruptf("raw size mismatch: header %d, got %d", rawSize, len(body))
		}
		return body, nil

	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(body, make([]byte, 0, rawSize))
		if err != nil {
			return nil, corrupt(err)
		}
		if uint64(len(raw)) != rawSize {
			return nil, corruptf("raw size mismatch: header %d, got %d", rawSize, len(raw))
		}
		return raw, nil

	case CompressionLZ4:
		raw := make([]byte, rawSize)
		n, err := lz4.UncompressBlock(body, raw)
		if err != nil {
			return nil, corrupt(err)
		}
		if uint64(n) != rawSize {
			return nil, corruptf("raw size mismatch: header %d, got %d", rawSize, n)
		}
		return raw, nil

	default:
		return nil, corrupt(ErrUnknownCompression)
	}
}
