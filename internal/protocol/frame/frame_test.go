package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestReadWriteEnvelopeRoundTrip(t *testing.T) {
	in := Envelope{TypeName: "Point2D", Version: 1, Payload: []byte{1, 2, 3, 4}}
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write envelope: %v", err)
	}
	if buf.Len() != in.Size() {
		t.Fatalf("size mismatch: wrote=%d size=%d", buf.Len(), in.Size())
	}
	out, err := ReadEnvelope(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	if out.TypeName != in.TypeName || out.Version != in.Version || !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("envelope mismatch: got=%+v want=%+v", out, in)
	}
}

func TestEnvelopeHeaderLayout(t *testing.T) {
	head := EncodeHeader("Point2D", 1, 16)
	want := []byte{7, 'P', 'o', 'i', 'n', 't', '2', 'D', 1, 16, 0, 0, 0}
	if !bytes.Equal(head, want) {
		t.Fatalf("header layout: got=%v want=%v", head, want)
	}
}

func TestNullEnvelopeIsSingleZeroByte(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnvelope(&buf, Envelope{}, DefaultLimits()); err != nil {
		t.Fatalf("write null: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0}) {
		t.Fatalf("null sentinel bytes: %v", buf.Bytes())
	}
	out, err := ReadEnvelope(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read null: %v", err)
	}
	if !out.IsNull() {
		t.Fatalf("expected null envelope, got %+v", out)
	}
}

func TestReadEnvelopeCleanEOF(t *testing.T) {
	_, err := ReadEnvelope(bytes.NewReader(nil), DefaultLimits())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadEnvelopeTruncatedAtEveryOffset(t *testing.T) {
	var buf bytes.Buffer
	env := Envelope{TypeName: "VectorDouble", Version: 0, Payload: bytes.Repeat([]byte{0xAB}, 12)}
	if err := WriteEnvelope(&buf, env, DefaultLimits()); err != nil {
		t.Fatalf("write envelope: %v", err)
	}
	full := buf.Bytes()
	for cut := 1; cut < len(full); cut++ {
		_, err := ReadEnvelope(bytes.NewReader(full[:cut]), DefaultLimits())
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("cut=%d: expected ErrTruncated, got %v", cut, err)
		}
	}
}

func TestReadEnvelopePayloadTooLarge(t *testing.T) {
	head := EncodeHeader("Blob", 0, 1024)
	limits := Limits{MaxTypeNameLen: 32, MaxPayloadBytes: 512}
	_, err := ReadEnvelope(bytes.NewReader(head), limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReadEnvelopeNameTooLong(t *testing.T) {
	head := binary.AppendUvarint(nil, 300)
	_, err := ReadEnvelope(bytes.NewReader(head), DefaultLimits())
	if !errors.Is(err, ErrTypeNameTooLong) {
		t.Fatalf("expected ErrTypeNameTooLong, got %v", err)
	}
}

func TestReadEnvelopeNameLengthOverflow(t *testing.T) {
	head := bytes.Repeat([]byte{0xff}, binary.MaxVarintLen64+1)
	_, err := ReadEnvelope(bytes.NewReader(head), DefaultLimits())
	if !errors.Is(err, ErrNameLenOverflow) {
		t.Fatalf("expected ErrNameLenOverflow, got %v", err)
	}
}

func TestValidateTypeName(t *testing.T) {
	good := []string{"Point2D", "obs.GPS", "Pose3DQuatPDFGaussian"}
	for _, name := range good {
		if err := ValidateTypeName(name, DefaultMaxTypeNameLen); err != nil {
			t.Fatalf("validate %q: %v", name, err)
		}
	}
	bad := []string{"", "Point 2D", "tab\tname", string([]byte{0xff, 0xfe})}
	for _, name := range bad {
		if err := ValidateTypeName(name, DefaultMaxTypeNameLen); !errors.Is(err, ErrInvalidTypeName) {
			t.Fatalf("expected ErrInvalidTypeName for %q, got %v", name, err)
		}
	}
}
