package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/fewshot/codec"
)

func testModel() *Model {
	return &Model{
		Embeddings: []float32{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
		},
		Labels: []string{"apple", "banana", "apple"},
		Count:  3,
		Dim:    4,
		Params: Hyperparams{
			NNeighbors:          3,
			ConfidenceThreshold: 0.6,
			MaxSamplesPerClass:  100,
			EmbeddingDim:        4,
		},
	}
}

type rawSection struct {
	name    string
	kind    uint8
	payload []byte
}

// buildArchive assembles an archive from explicit sections, bypassing Encode.
// Used to exercise forward/backward tolerance paths.
func buildArchive(t *testing.T, sections []rawSection) []byte {
	t.Helper()

	var body bytes.Buffer
	for _, sec := range sections {
		writeSection(&body, sec.name, sec.kind, sec.payload)
	}
	raw := body.Bytes()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	header := FileHeader{
		Magic:        MagicNumber,
		Version:      Version,
		Compression:  uint8(CompressionZstd),
		SectionCount: uint32(len(sections)),
		RawSize:      uint64(len(raw)),
		BodySize:     uint64(len(compressed)),
		Checksum:     crc32.ChecksumIEEE(compressed),
	}
	copy(header.CodecName[:], "json")

	var out bytes.Buffer
	require.NoError(t, binary.Write(&out, binary.LittleEndian, &header))
	out.Write(compressed)
	return out.Bytes()
}

func shapeSection(count, dim int) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], uint32(count))
	binary.LittleEndian.PutUint32(b[4:], uint32(dim))
	return b
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			in := testModel()
			data, err := Encode(in, func(o *Options) { o.Compression = compression })
			require.NoError(t, err)

			out, err := Decode(data, Hyperparams{})
			require.NoError(t, err)
			assert.Equal(t, in.Embeddings, out.Embeddings)
			assert.Equal(t, in.Labels, out.Labels)
			assert.Equal(t, in.Count, out.Count)
			assert.Equal(t, in.Dim, out.Dim)
			assert.Equal(t, in.Params, out.Params)
		})
	}
}

func TestEncodeDecodeGoJSONCodec(t *testing.T) {
	in := testModel()
	data, err := Encode(in, func(o *Options) { o.Codec = codec.GoJSON{} })
	require.NoError(t, err)

	out, err := Decode(data, Hyperparams{})
	require.NoError(t, err)
	assert.Equal(t, in.Labels, out.Labels)
	assert.Equal(t, in.Params, out.Params)
}

func TestEncodeDecodeEmptyModel(t *testing.T) {
	in := &Model{
		Labels: []string{},
		Count:  0,
		Dim:    512,
		Params: Hyperparams{NNeighbors: 3, ConfidenceThreshold: 0.6, MaxSamplesPerClass: 100, EmbeddingDim: 512},
	}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data, Hyperparams{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Count)
	assert.Equal(t, 512, out.Dim)
	assert.Empty(t, out.Labels)
}

func TestDecodeRejectsCorruptArchives(t *testing.T) {
	valid, err := Encode(testModel())
	require.NoError(t, err)

	t.Run("Truncated", func(t *testing.T) {
		_, err := Decode(valid[:10], Hyperparams{})
		assert.True(t, errors.Is(err, ErrCorrupt))
	})

	t.Run("BadMagic", func(t *testing.T) {
		data := bytes.Clone(valid)
		data[0] ^= 0xFF
		_, err := Decode(data, Hyperparams{})
		assert.True(t, errors.Is(err, ErrCorrupt))
		assert.True(t, errors.Is(err, ErrInvalidMagic))
	})

	t.Run("BadVersion", func(t *testing.T) {
		data := bytes.Clone(valid)
		data[6] ^= 0xFF
		_, err := Decode(data, Hyperparams{})
		assert.True(t, errors.Is(err, ErrInvalidVersion))
	})

	t.Run("FlippedBodyByte", func(t *testing.T) {
		data := bytes.Clone(valid)
		data[len(data)-1] ^= 0xFF
		_, err := Decode(data, Hyperparams{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCorrupt))

		var mismatch *ChecksumMismatchError
		assert.True(t, errors.As(err, &mismatch))
	})

	t.Run("TruncatedBody", func(t *testing.T) {
		_, err := Decode(valid[:len(valid)-5], Hyperparams{})
		assert.True(t, errors.Is(err, ErrCorrupt))
	})
}

func TestDecodeSkipsUnknownSections(t *testing.T) {
	labels, err := codec.JSON{}.Marshal([]string{"apple"})
	require.NoError(t, err)
	params, err := codec.JSON{}.Marshal(Hyperparams{NNeighbors: 5, ConfidenceThreshold: 0.4, MaxSamplesPerClass: 10, EmbeddingDim: 2})
	require.NoError(t, err)

	data := buildArchive(t, []rawSection{
		{sectionShape, sectionKindRaw, shapeSection(1, 2)},
		{"future_feature", sectionKindRaw, []byte{1, 2, 3, 4}},
		{sectionEmbeddings, sectionKindRaw, float32Bytes([]float32{0.6, 0.8})},
		{sectionLabels, sectionKindEncoded, labels},
		{sectionHyperparams, sectionKindEncoded, params},
	})

	m, err := Decode(data, Hyperparams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"apple"}, m.Labels)
	assert.Equal(t, []float32{0.6, 0.8}, m.Embeddings)
	assert.Equal(t, 5, m.Params.NNeighbors)
}

func TestDecodeHyperparamFallbacks(t *testing.T) {
	defaults := Hyperparams{
		NNeighbors:          3,
		ConfidenceThreshold: 0.6,
		MaxSamplesPerClass:  100,
		EmbeddingDim:        512,
	}

	labels, err := codec.JSON{}.Marshal([]string{"apple"})
	require.NoError(t, err)

	t.Run("MissingSection", func(t *testing.T) {
		data := buildArchive(t, []rawSection{
			{sectionShape, sectionKindRaw, shapeSection(1, 2)},
			{sectionEmbeddings, sectionKindRaw, float32Bytes([]float32{0.6, 0.8})},
			{sectionLabels, sectionKindEncoded, labels},
		})

		m, err := Decode(data, defaults)
		require.NoError(t, err)
		assert.Equal(t, 3, m.Params.NNeighbors)
		assert.Equal(t, 0.6, m.Params.ConfidenceThreshold)
		// The stored matrix shape wins over the configured dimension.
		assert.Equal(t, 2, m.Params.EmbeddingDim)
	})

	t.Run("PartialSection", func(t *testing.T) {
		data := buildArchive(t, []rawSection{
			{sectionShape, sectionKindRaw, shapeSection(1, 2)},
			{sectionEmbeddings, sectionKindRaw, float32Bytes([]float32{0.6, 0.8})},
			{sectionLabels, sectionKindEncoded, labels},
			{sectionHyperparams, sectionKindEncoded, []byte(`{"n_neighbors":7}`)},
		})

		m, err := Decode(data, defaults)
		require.NoError(t, err)
		assert.Equal(t, 7, m.Params.NNeighbors)
		assert.Equal(t, 0.6, m.Params.ConfidenceThreshold)
		assert.Equal(t, 100, m.Params.MaxSamplesPerClass)
	})
}

func TestDecodeValidatesShape(t *testing.T) {
	labels, err := codec.JSON{}.Marshal([]string{"apple", "banana"})
	require.NoError(t, err)

	t.Run("EmbeddingSizeMismatch", func(t *testing.T) {
		data := buildArchive(t, []rawSection{
			{sectionShape, sectionKindRaw, shapeSection(2, 2)},
			{sectionEmbeddings, sectionKindRaw, float32Bytes([]float32{1, 0})}, // one row short
			{sectionLabels, sectionKindEncoded, labels},
		})
		_, err := Decode(data, Hyperparams{})
		assert.True(t, errors.Is(err, ErrCorrupt))
	})

	t.Run("LabelCountMismatch", func(t *testing.T) {
		data := buildArchive(t, []rawSection{
			{sectionShape, sectionKindRaw, shapeSection(1, 2)},
			{sectionEmbeddings, sectionKindRaw, float32Bytes([]float32{1, 0})},
			{sectionLabels, sectionKindEncoded, labels},
		})
		_, err := Decode(data, Hyperparams{})
		assert.True(t, errors.Is(err, ErrCorrupt))
	})

	t.Run("MissingShape", func(t *testing.T) {
		data := buildArchive(t, []rawSection{
			{sectionEmbeddings, sectionKindRaw, float32Bytes([]float32{1, 0})},
			{sectionLabels, sectionKindEncoded, labels},
		})
		_, err := Decode(data, Hyperparams{})
		assert.True(t, errors.Is(err, ErrCorrupt))
	})
}
