package derasn1

import (
	"bytes"
	"testing"
)

func TestBerToDerIndefiniteSequence(t *testing.T) {
	// SEQUENCE (indefinite) { INTEGER 5 }
	ber := []byte{0x30, 0x80, 0x02, 0x01, 0x05, 0x00, 0x00}
	want := []byte{0x30, 0x03, 0x02, 0x01, 0x05}

	got, err := BerToDer(ber)
	if err != nil {
		t.Fatalf("BerToDer: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestBerToDerNestedIndefinite(t *testing.T) {
	// SEQUENCE (indefinite) { SEQUENCE (indefinite) { INTEGER 1 } OCTET STRING "ab" }
	inner := []byte{0x30, 0x80, 0x02, 0x01, 0x01, 0x00, 0x00}
	ber := append([]byte{0x30, 0x80}, inner...)
	ber = append(ber, 0x04, 0x02, 'a', 'b')
	ber = append(ber, 0x00, 0x00)

	want := []byte{
		0x30, 0x09, // outer SEQUENCE, length 9
		0x30, 0x03, 0x02, 0x01, 0x01, // inner SEQUENCE { INTEGER 1 }
		0x04, 0x02, 'a', 'b', // OCTET STRING "ab"
	}

	got, err := BerToDer(ber)
	if err != nil {
		t.Fatalf("BerToDer: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestBerToDerDefiniteLengthIsFixedPoint(t *testing.T) {
	der := []byte{0x30, 0x05, 0x02, 0x01, 0x2a, 0x04, 0x00}

	got, err := BerToDer(der)
	if err != nil {
		t.Fatalf("BerToDer: %v", err)
	}
	if !bytes.Equal(got, der) {
		t.Fatalf("DER input should be a fixed point: got % x, want % x", got, der)
	}
}

func TestBerToDerIndefiniteOnPrimitiveRejected(t *testing.T) {
	// A primitive INTEGER cannot carry an indefinite length.
	ber := []byte{0x02, 0x80, 0x00, 0x00}
	if _, err := BerToDer(ber); err == nil {
		t.Fatal("expected error for indefinite length on a primitive tag")
	}
}

func TestBerToDerTrailingBytesRejected(t *testing.T) {
	ber := []byte{0x02, 0x01, 0x05, 0xff}
	if _, err := BerToDer(ber); err == nil {
		t.Fatal("expected error for trailing bytes after the top-level element")
	}
}

func TestBerToDerTruncatedIndefiniteRejected(t *testing.T) {
	// Missing the end-of-contents marker.
	ber := []byte{0x30, 0x80, 0x02, 0x01, 0x05}
	if _, err := BerToDer(ber); err == nil {
		t.Fatal("expected error for a truncated indefinite-length element")
	}
}
