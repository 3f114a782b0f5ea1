// Package derasn1 implements a template-driven DER/BER codec.
//
// The package is split into two halves: the primitive codec (tag and
// length framing plus the handful of universal types used throughout
// X.509 — INTEGER, BIT STRING, OCTET STRING, NULL, OBJECT IDENTIFIER,
// SEQUENCE/SET headers, UTCTime/GeneralizedTime) and the template
// engine (a static array of item descriptors walked against a
// parallel array of data slots to encode or decode a whole object in
// one pass). The fixed-shape key schemas (RSA/EC/Ed25519/DSA) and
// PKCS#8 are expressed as such templates; X.509 certificates, CSRs,
// CRLs, OCSP and PKCS#7 decode with direct Cursor reads over the
// primitive codec.
package derasn1

import "fmt"

// Kind discriminates the error taxonomy used across encode/decode.
type Kind int

const (
	KindParse Kind = iota
	KindBuffer
	KindExpect0
	KindBitString
	KindObjectId
	KindBadState
	KindMpInit
	KindMpConvert
	KindNegativeInteger
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindBuffer:
		return "buffer error"
	case KindExpect0:
		return "expect-zero error"
	case KindBitString:
		return "bit string error"
	case KindObjectId:
		return "object identifier error"
	case KindBadState:
		return "bad state error"
	case KindMpInit:
		return "multi-precision init error"
	case KindMpConvert:
		return "multi-precision convert error"
	case KindNegativeInteger:
		return "negative integer error"
	default:
		return "unknown error"
	}
}

// Error is the structural/domain error type returned by the primitive
// codec and the template engine. Offset is the byte position within
// the buffer under inspection where the failure was detected, or -1
// when not applicable.
type Error struct {
	Kind   Kind
	Offset int
	Detail string
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("derasn1: %s at offset %d: %s", e.Kind, e.Offset, e.Detail)
	}
	return fmt.Sprintf("derasn1: %s: %s", e.Kind, e.Detail)
}

func newErr(kind Kind, offset int, format string, args ...interface{}) error {
	return &Error{Kind: kind, Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// ParseError reports malformed structure (bad tag, mis-nesting,
// truncated length).
func ParseError(offset int, format string, args ...interface{}) error {
	return newErr(KindParse, offset, format, args...)
}

// BufferError reports an attempt to read past the end of the buffer.
func BufferError(offset int) error {
	return newErr(KindBuffer, offset, "cursor past end of buffer")
}

// Expect0Error reports a bad length or padding rule violation (e.g.
// NULL with nonzero length, unused-bits byte with the wrong leading
// zero behaviour).
func Expect0Error(offset int, format string, args ...interface{}) error {
	return newErr(KindExpect0, offset, format, args...)
}

// BitStringError reports an invalid BIT STRING encoding.
func BitStringError(offset int, format string, args ...interface{}) error {
	return newErr(KindBitString, offset, format, args...)
}

// ObjectIdError reports an OBJECT IDENTIFIER that failed structural
// validation or registry lookup.
func ObjectIdError(offset int, format string, args ...interface{}) error {
	return newErr(KindObjectId, offset, format, args...)
}

// BadStateError reports an item descriptor whose data-slot kind the
// engine does not know how to size or emit.
func BadStateError(format string, args ...interface{}) error {
	return newErr(KindBadState, -1, format, args...)
}

// NegativeIntegerError reports an INTEGER whose sign does not match
// what the caller requested, e.g. a field the grammar requires to be
// non-negative decoded a negative value.
func NegativeIntegerError(offset int) error {
	return newErr(KindNegativeInteger, offset, "integer has unexpected sign")
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
