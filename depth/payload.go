package depth

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/klauspost/compress/zstd"
)

const (
	EncodingRaw  = "raw"
	EncodingZstd = "zstd"

	ErrTypeUnsupportedEncoding = "unsupported-encoding"
	ErrTypeDigestMismatch      = "digest-mismatch"
)

// Payload is the wire representation of a depth frame.
type Payload struct {
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	FocalLength    [2]float32 `json:"focal_length"`
	PrincipalPoint [2]float32 `json:"principal_point"`

	// Either an orientation name or an explicit display matrix. The matrix
	// wins when both are set.
	Orientation   string      `json:"orientation,omitempty"`
	DisplayMatrix *[6]float32 `json:"display_matrix,omitempty"`

	// Little-endian int16 millimeter samples, row-major.
	Encoding string `json:"encoding,omitempty"`
	Samples  []byte `json:"samples"`

	// Optional hex encoded Keccak-256 digest of the uncompressed samples.
	Digest string `json:"digest,omitempty"`
}

// DecodePayload validates and decodes a wire frame.
func DecodePayload(p Payload) (*Frame, error) {
	if err := validateDimensions(p.Width, p.Height); err != nil {
		return nil, err
	}

	size := p.Width * p.Height * 2
	raw, err := decompress(p.Encoding, p.Samples, size)
	if err != nil {
		return nil, err
	}
	if len(raw) != size {
		return nil, errors.New("sample byte count does not match frame dimensions").
			WithType(ErrTypeInvalidFrame).
			WithTag("width", p.Width).
			WithTag("height", p.Height).
			WithTag("bytes", len(raw))
	}

	if p.Digest != "" {
		if err := verifyDigest(p.Digest, raw); err != nil {
			return nil, err
		}
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}

	display, err := p.display()
	if err != nil {
		return nil, err
	}

	intrinsics := NewIntrinsics(
		p.FocalLength[0],
		p.FocalLength[1],
		p.PrincipalPoint[0],
		p.PrincipalPoint[1],
		p.Width,
		p.Height,
	)

	return NewFrame(p.Width, p.Height, samples, intrinsics, display)
}

// EncodePayload builds the wire representation of a frame, with its digest.
func EncodePayload(f *Frame, encoding string) (Payload, error) {
	raw := make([]byte, len(f.samples)*2)
	for i, s := range f.samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	digest := hex.EncodeToString(crypto.Keccak256(raw))

	samples, err := compress(encoding, raw)
	if err != nil {
		return Payload{}, err
	}

	m := f.display.Matrix()
	in := f.intrinsics

	return Payload{
		Width:          f.width,
		Height:         f.height,
		FocalLength:    [2]float32{in.FocalLength.X(), in.FocalLength.Y()},
		PrincipalPoint: [2]float32{in.PrincipalPoint.X(), in.PrincipalPoint.Y()},
		DisplayMatrix:  &m,
		Encoding:       encoding,
		Samples:        samples,
		Digest:         digest,
	}, nil
}

func (p Payload) display() (DisplayTransform, error) {
	if p.DisplayMatrix != nil {
		return NewDisplayTransform(*p.DisplayMatrix), nil
	}

	o, err := ParseOrientation(p.Orientation)
	if err != nil {
		return DisplayTransform{}, err
	}
	return DisplayForOrientation(o), nil
}

// decompress decodes samples, failing once the output exceeds maxSize bytes.
func decompress(encoding string, data []byte, maxSize int) ([]byte, error) {
	switch encoding {
	case "", EncodingRaw:
		return data, nil

	case EncodingZstd:
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(maxSize)),
		)
		if err != nil {
			return nil, errors.New("creating zstd decoder failed").Wrap(err)
		}
		defer dec.Close()

		raw, err := dec.DecodeAll(data, make([]byte, 0, maxSize))
		if err != nil {
			return nil, errors.New("decompressing samples failed").
				WithType(ErrTypeInvalidFrame).
				Wrap(err)
		}
		return raw, nil

	default:
		return nil, errors.New("unsupported sample encoding").
			WithType(ErrTypeUnsupportedEncoding).
			WithTag("encoding", encoding)
	}
}

func compress(encoding string, raw []byte) ([]byte, error) {
	switch encoding {
	case "", EncodingRaw:
		return raw, nil

	case EncodingZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, errors.New("creating zstd encoder failed").Wrap(err)
		}
		defer enc.Close()

		return enc.EncodeAll(raw, nil), nil

	default:
		return nil, errors.New("unsupported sample encoding").
			WithType(ErrTypeUnsupportedEncoding).
			WithTag("encoding", encoding)
	}
}

func verifyDigest(digest string, raw []byte) error {
	expected, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(digest), "0x"))
	if err != nil {
		return errors.New("invalid digest").
			WithType(ErrTypeDigestMismatch).
			Wrap(err)
	}

	if !bytes.Equal(crypto.Keccak256(raw), expected) {
		return errors.New("failed to verify samples digest").
			WithType(ErrTypeDigestMismatch).
			WithTag("digest", digest)
	}
	return nil
}
