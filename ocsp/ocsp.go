// Package ocsp implements the RFC 6960 OCSP request/response grammar,
// built over derasn1/oid/pkix rather than encoding/asn1 struct tags.
package ocsp

import (
	"math/big"

	"github.com/pkg/errors"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
	"go.step.sm/ocsp/verify"
)

// ResponseStatus is the top-level OCSPResponseStatus enumeration
// (RFC 6960 §2.3).
type ResponseStatus int

const (
	Success           ResponseStatus = 0
	Malformed         ResponseStatus = 1
	InternalError     ResponseStatus = 2
	TryLater          ResponseStatus = 3
	SignatureRequired ResponseStatus = 5
	Unauthorized      ResponseStatus = 6
)

func (r ResponseStatus) String() string {
	switch r {
	case Success:
		return "success"
	case Malformed:
		return "malformed"
	case InternalError:
		return "internal error"
	case TryLater:
		return "try later"
	case SignatureRequired:
		return "signature required"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown OCSP status"
	}
}

// ResponseError is returned by ParseResponse when the response itself
// carries a non-success OCSPResponseStatus rather than a certificate
// status.
type ResponseError struct {
	Status ResponseStatus
}

func (r ResponseError) Error() string {
	return "ocsp: error from server: " + r.Status.String()
}

// ParseError results from a structurally invalid request or response.
type ParseError string

func (p ParseError) Error() string { return string(p) }

// Certificate status values a SingleResponse can carry.
const (
	Good = iota
	Revoked
	Unknown
)

// CRLReason values carried in a RevokedInfo's revocationReason
// (RFC 5280 §5.3.1).
const (
	Unspecified          = 0
	KeyCompromise        = 1
	CACompromise         = 2
	AffiliationChanged   = 3
	Superseded           = 4
	CessationOfOperation = 5
	CertificateHold      = 6
	RemoveFromCRL        = 8
	PrivilegeWithdrawn   = 9
	AACompromise         = 10
)

// Request is a decoded single-certificate OCSPRequest. Signed requests
// (the optionalSignature field of OCSPRequest) are not supported: a
// request carrying one is a ParseError.
type Request struct {
	HashAlgID      int // oid.HashType id
	IssuerNameHash []byte
	IssuerKeyHash  []byte
	SerialNumber   *big.Int
	Nonce          []byte
	HasNonce       bool
}

// Response is a decoded single-certificate OCSP response: the
// BasicOCSPResponse fields plus the one SingleResponse selected by
// ParseResponseForCert (or the sole one present, for ParseResponse).
type Response struct {
	Raw []byte

	Status       int // Good, Revoked, or Unknown
	SerialNumber *big.Int

	IssuerHashAlgID int
	IssuerNameHash  []byte
	IssuerKeyHash   []byte

	ProducedAt derasn1.DateTime
	ThisUpdate derasn1.DateTime

	NextUpdate    derasn1.DateTime
	HasNextUpdate bool

	RevokedAt           derasn1.DateTime
	RevocationReason    int
	HasRevocationReason bool

	TBSResponseData []byte
	SignatureAlgID  int
	Signature       []byte

	RawResponderName    []byte
	HasResponderName    bool
	ResponderKeyHash     []byte
	HasResponderKeyHash bool

	// Certificates holds the raw DER of each certificate carried in the
	// response's optional certs field, for the caller to parse with
	// x509cert and chain back to a trusted issuer.
	Certificates [][]byte

	Nonce    []byte
	HasNonce bool

	SingleExtensions   []pkix.Extension
	ResponseExtensions []pkix.Extension
}

// CheckSignatureFrom verifies resp's signature was produced by the
// key described by pubKeyAlgID/pubKeyRaw (the responder's
// SubjectPublicKeyInfo), delegating to verify.VerifySignature. Callers
// resolve which key that is themselves (the embedded Certificates
// entry, or the issuer directly) to resolve that key themselves.
func (resp *Response) CheckSignatureFrom(pubKeyAlgID int, pubKeyRaw []byte) error {
	return verify.VerifySignature(resp.TBSResponseData, resp.Signature, resp.SignatureAlgID, pubKeyAlgID, pubKeyRaw)
}

func readEnumerated(c *derasn1.Cursor) (int64, error) {
	start := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return 0, err
	}
	if tag != derasn1.TagEnumerated {
		return 0, derasn1.ParseError(start, "expected ENUMERATED tag, got 0x%02x", tag)
	}
	length, err := c.ReadLength()
	if err != nil {
		return 0, err
	}
	content, err := c.ReadN(length)
	if err != nil {
		return 0, err
	}
	if len(content) == 0 {
		return 0, derasn1.ParseError(start, "ENUMERATED content must be non-empty")
	}
	var v int64
	for _, b := range content {
		v = v<<8 | int64(b)
	}
	return v, nil
}

func encodeEnumerated(dst []byte, v int64) []byte {
	dst = append(dst, derasn1.TagEnumerated, 0x01)
	return append(dst, byte(v))
}

func parseCertID(c *derasn1.Cursor) (hashAlgID int, issuerNameHash, issuerKeyHash []byte, serial *big.Int, err error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return 0, nil, nil, nil, err
	}
	end := c.Pos() + seqLen
	alg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return 0, nil, nil, nil, err
	}
	hashAlgID, ok := oid.Lookup(oid.HashType, alg.OIDSum, alg.OIDRaw)
	if !ok {
		return 0, nil, nil, nil, derasn1.ObjectIdError(c.Pos(), "unrecognised CertID hashAlgorithm OID")
	}
	issuerNameHash, err = derasn1.ReadOctetString(c)
	if err != nil {
		return 0, nil, nil, nil, err
	}
	issuerKeyHash, err = derasn1.ReadOctetString(c)
	if err != nil {
		return 0, nil, nil, nil, err
	}
	serial, err = derasn1.ReadBigInt(c, true)
	if err != nil {
		return 0, nil, nil, nil, err
	}
	if c.Pos() != end {
		return 0, nil, nil, nil, derasn1.ParseError(end, "CertID did not consume its declared length")
	}
	return hashAlgID, issuerNameHash, issuerKeyHash, serial, nil
}

func encodeCertID(dst []byte, hashAlgID int, issuerNameHash, issuerKeyHash []byte, serial *big.Int) []byte {
	hashOID, err := oid.Bytes(oid.HashType, hashAlgID)
	if err != nil {
		panic(err)
	}
	var content []byte
	content = pkix.EncodeAlgorithmIdentifier(content, hashOID, true)
	content = derasn1.EncodeOctetString(content, issuerNameHash)
	content = derasn1.EncodeOctetString(content, issuerKeyHash)
	content = derasn1.EncodeBigInt(content, serial)
	dst = derasn1.EncodeHeader(dst, derasn1.TagSequence|0x20, len(content))
	return append(dst, content...)
}

// ParseRequest decodes a single-certificate OCSPRequest in DER form.
func ParseRequest(der []byte) (*Request, error) {
	c := derasn1.NewCursor(der)
	outerSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	outerEnd := c.Pos() + outerSeqLen

	tbsSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	tbsEnd := c.Pos() + tbsSeqLen

	// optional [0] EXPLICIT version
	if c.Pos() < tbsEnd {
		if b, err := c.PeekByte(); err == nil && b == derasn1.ContextTag(0, true) {
			c.ReadTag()
			length, err := c.ReadLength()
			if err != nil {
				return nil, err
			}
			if _, err := c.ReadN(length); err != nil {
				return nil, err
			}
		}
	}

	// optional [1] EXPLICIT requestorName, skipped whole.
	if c.Pos() < tbsEnd {
		if b, err := c.PeekByte(); err == nil && b == derasn1.ContextTag(1, true) {
			c.ReadTag()
			length, err := c.ReadLength()
			if err != nil {
				return nil, err
			}
			if _, err := c.ReadN(length); err != nil {
				return nil, err
			}
		}
	}

	listLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	listEnd := c.Pos() + listLen
	if listEnd == c.Pos() {
		return nil, ParseError("OCSP request contains no request body")
	}

	reqSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	reqEnd := c.Pos() + reqSeqLen
	hashAlgID, nameHash, keyHash, serial, err := parseCertID(c)
	if err != nil {
		return nil, err
	}
	// singleRequestExtensions, when present, are parsed past.
	if c.Pos() < reqEnd {
		if err := c.Skip(reqEnd - c.Pos()); err != nil {
			return nil, err
		}
	}
	// this module only supports a single request; any further entries
	// in requestList are parsed past, not interpreted.
	if err := c.Skip(listEnd - c.Pos()); err != nil {
		return nil, err
	}

	req := &Request{
		HashAlgID:      hashAlgID,
		IssuerNameHash: nameHash,
		IssuerKeyHash:  keyHash,
		SerialNumber:   serial,
	}

	if c.Pos() < tbsEnd {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b != derasn1.ContextTag(2, true) {
			return nil, derasn1.ParseError(c.Pos(), "unexpected trailing field in TBSRequest")
		}
		c.ReadTag()
		extLen, err := c.ReadLength()
		if err != nil {
			return nil, err
		}
		extEnd := c.Pos() + extLen
		innerSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return nil, err
		}
		if c.Pos()+innerSeqLen != extEnd {
			return nil, derasn1.ParseError(extEnd, "requestExtensions SEQUENCE did not match [2] wrapper length")
		}
		exts, err := pkix.ParseExtensions(c, extEnd)
		if err != nil {
			return nil, err
		}
		for _, ext := range exts {
			if id, ok := oid.Lookup(oid.OcspType, ext.OIDSum, ext.OIDRaw); ok && id == oid.OcspNonce {
				req.Nonce = ext.Value
				req.HasNonce = true
			}
		}
	}

	if c.Pos() != tbsEnd {
		return nil, derasn1.ParseError(tbsEnd, "TBSRequest did not consume its declared length")
	}
	if c.Pos() != outerEnd {
		return nil, ParseError("signed OCSP requests are not supported")
	}
	return req, nil
}

// CreateRequest builds a DER-encoded OCSPRequest for a single
// certificate. If nonce is non-nil it is carried as the
// id-pkix-ocsp-nonce requestExtensions entry.
func CreateRequest(hashAlgID int, issuerNameHash, issuerKeyHash []byte, serial *big.Int, nonce []byte) ([]byte, error) {
	if _, err := oid.Bytes(oid.HashType, hashAlgID); err != nil {
		return nil, err
	}
	var reqCert []byte
	reqCert = encodeCertID(reqCert, hashAlgID, issuerNameHash, issuerKeyHash, serial)
	var reqSeq []byte
	reqSeq = derasn1.EncodeHeader(reqSeq, derasn1.TagSequence|0x20, len(reqCert))
	reqSeq = append(reqSeq, reqCert...)

	var list []byte
	list = derasn1.EncodeHeader(list, derasn1.TagSequence|0x20, len(reqSeq))
	list = append(list, reqSeq...)

	var tbs []byte
	tbs = append(tbs, list...)

	if len(nonce) > 0 {
		nonceOID, err := oid.Bytes(oid.OcspType, oid.OcspNonce)
		if err != nil {
			return nil, err
		}
		extBlock := pkix.EncodeExtensions(nil, []pkix.Extension{{OIDRaw: nonceOID, Value: nonce}})
		var wrapper []byte
		wrapper = append(wrapper, derasn1.ContextTag(2, true))
		wrapper = derasn1.EncodeLength(wrapper, len(extBlock))
		wrapper = append(wrapper, extBlock...)
		tbs = append(tbs, wrapper...)
	}

	var tbsSeq []byte
	tbsSeq = derasn1.EncodeHeader(tbsSeq, derasn1.TagSequence|0x20, len(tbs))
	tbsSeq = append(tbsSeq, tbs...)

	var out []byte
	out = derasn1.EncodeHeader(out, derasn1.TagSequence|0x20, len(tbsSeq))
	return append(out, tbsSeq...), nil
}

// singleResponseRecord is one SingleResponse entry of a
// BasicOCSPResponse, kept internal until ParseResponseForCert selects
// which one becomes the exported Response.
type singleResponseRecord struct {
	hashAlgID        int
	issuerNameHash   []byte
	issuerKeyHash    []byte
	serial           *big.Int
	status           int
	revokedAt        derasn1.DateTime
	reason           int
	hasReason        bool
	thisUpdate       derasn1.DateTime
	nextUpdate       derasn1.DateTime
	hasNextUpdate    bool
	extensions       []pkix.Extension
}

func parseSingleResponse(c *derasn1.Cursor) (singleResponseRecord, error) {
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return singleResponseRecord{}, err
	}
	end := c.Pos() + seqLen

	hashAlgID, nameHash, keyHash, serial, err := parseCertID(c)
	if err != nil {
		return singleResponseRecord{}, err
	}
	rec := singleResponseRecord{hashAlgID: hashAlgID, issuerNameHash: nameHash, issuerKeyHash: keyHash, serial: serial}

	statusStart := c.Pos()
	tag, err := c.ReadTag()
	if err != nil {
		return singleResponseRecord{}, err
	}
	length, err := c.ReadLength()
	if err != nil {
		return singleResponseRecord{}, err
	}
	content, err := c.ReadN(length)
	if err != nil {
		return singleResponseRecord{}, err
	}
	switch tag {
	case derasn1.ContextTag(0, false):
		if len(content) != 0 {
			return singleResponseRecord{}, derasn1.ParseError(statusStart, "CertStatus good must carry no content")
		}
		rec.status = Good
	case derasn1.ContextTag(1, true):
		rec.status = Revoked
		inner := derasn1.NewCursor(content)
		revTime, err := readTime(inner)
		if err != nil {
			return singleResponseRecord{}, err
		}
		rec.revokedAt = revTime
		if inner.Pos() < len(content) {
			b, err := inner.PeekByte()
			if err != nil {
				return singleResponseRecord{}, err
			}
			if b != derasn1.ContextTag(0, true) {
				return singleResponseRecord{}, derasn1.ParseError(inner.Pos(), "unexpected trailing field in RevokedInfo")
			}
			inner.ReadTag()
			rLen, err := inner.ReadLength()
			if err != nil {
				return singleResponseRecord{}, err
			}
			rEnd := inner.Pos() + rLen
			reason, err := readEnumerated(inner)
			if err != nil {
				return singleResponseRecord{}, err
			}
			if inner.Pos() != rEnd {
				return singleResponseRecord{}, derasn1.ParseError(rEnd, "revocationReason did not consume its declared length")
			}
			rec.reason = int(reason)
			rec.hasReason = true
		}
		if inner.Pos() != len(content) {
			return singleResponseRecord{}, derasn1.ParseError(statusStart, "RevokedInfo did not consume its declared length")
		}
	case derasn1.ContextTag(2, false):
		if len(content) != 0 {
			return singleResponseRecord{}, derasn1.ParseError(statusStart, "CertStatus unknown must carry no content")
		}
		rec.status = Unknown
	default:
		return singleResponseRecord{}, derasn1.ParseError(statusStart, "unrecognised CertStatus tag 0x%02x", tag)
	}

	thisUpdate, err := readTime(c)
	if err != nil {
		return singleResponseRecord{}, err
	}
	rec.thisUpdate = thisUpdate

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return singleResponseRecord{}, err
		}
		if b == derasn1.ContextTag(0, true) {
			c.ReadTag()
			length, err := c.ReadLength()
			if err != nil {
				return singleResponseRecord{}, err
			}
			nuEnd := c.Pos() + length
			nextUpdate, err := readTime(c)
			if err != nil {
				return singleResponseRecord{}, err
			}
			if c.Pos() != nuEnd {
				return singleResponseRecord{}, derasn1.ParseError(nuEnd, "nextUpdate did not consume its declared length")
			}
			rec.nextUpdate = nextUpdate
			rec.hasNextUpdate = true
		}
	}

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return singleResponseRecord{}, err
		}
		if b != derasn1.ContextTag(1, true) {
			return singleResponseRecord{}, derasn1.ParseError(c.Pos(), "unexpected trailing field in SingleResponse")
		}
		c.ReadTag()
		extLen, err := c.ReadLength()
		if err != nil {
			return singleResponseRecord{}, err
		}
		extEnd := c.Pos() + extLen
		innerSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return singleResponseRecord{}, err
		}
		if c.Pos()+innerSeqLen != extEnd {
			return singleResponseRecord{}, derasn1.ParseError(extEnd, "singleExtensions SEQUENCE did not match [1] wrapper length")
		}
		exts, err := pkix.ParseExtensions(c, extEnd)
		if err != nil {
			return singleResponseRecord{}, err
		}
		for _, ext := range exts {
			if ext.Critical {
				return singleResponseRecord{}, derasn1.ParseError(extEnd, "unsupported critical singleExtension")
			}
		}
		rec.extensions = exts
	}

	if c.Pos() != end {
		return singleResponseRecord{}, derasn1.ParseError(end, "SingleResponse did not consume its declared length")
	}
	return rec, nil
}

func readTime(c *derasn1.Cursor) (derasn1.DateTime, error) {
	tag, err := c.PeekByte()
	if err != nil {
		return derasn1.DateTime{}, err
	}
	switch tag {
	case derasn1.TagUTCTime:
		return derasn1.ReadUTCTime(c)
	case derasn1.TagGeneralizedTime:
		return derasn1.ReadGeneralizedTime(c)
	default:
		return derasn1.DateTime{}, derasn1.ParseError(c.Pos(), "expected UTCTime or GeneralizedTime, got tag 0x%02x", tag)
	}
}

// basicResponseData is the fully-decoded BasicOCSPResponse, internal
// until ParseResponseForCert projects it onto the exported Response.
type basicResponseData struct {
	tbsResponseData []byte
	rawResponderName    []byte
	hasResponderName    bool
	responderKeyHash    []byte
	hasResponderKeyHash bool
	producedAt          derasn1.DateTime
	responses           []singleResponseRecord
	responseExtensions  []pkix.Extension
	nonce               []byte
	hasNonce            bool
	sigAlgID            int
	signature           []byte
	certificates        [][]byte
}

func parseBasicResponse(der []byte) (*basicResponseData, error) {
	c := derasn1.NewCursor(der)
	seqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	end := c.Pos() + seqLen

	tbsStart := c.Pos()
	tbsSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	tbsEnd := c.Pos() + tbsSeqLen

	data := &basicResponseData{}

	// optional [0] EXPLICIT version, skipped.
	if c.Pos() < tbsEnd {
		if b, err := c.PeekByte(); err == nil && b == derasn1.ContextTag(0, true) {
			c.ReadTag()
			length, err := c.ReadLength()
			if err != nil {
				return nil, err
			}
			if _, err := c.ReadN(length); err != nil {
				return nil, err
			}
		}
	}

	// ResponderID CHOICE: [1] byName Name (EXPLICIT), or [2] byKey
	// KeyHash (EXPLICIT OCTET STRING).
	ridStart := c.Pos()
	ridTag, err := c.ReadTag()
	if err != nil {
		return nil, err
	}
	ridLen, err := c.ReadLength()
	if err != nil {
		return nil, err
	}
	ridEnd := c.Pos() + ridLen
	switch ridTag {
	case derasn1.ContextTag(1, true):
		name, err := pkix.ParseName(c)
		if err != nil {
			return nil, err
		}
		if c.Pos() != ridEnd {
			return nil, derasn1.ParseError(ridEnd, "responderID byName did not consume its declared length")
		}
		data.rawResponderName = name.Raw
		data.hasResponderName = true
	case derasn1.ContextTag(2, true):
		keyHash, err := derasn1.ReadOctetString(c)
		if err != nil {
			return nil, err
		}
		if c.Pos() != ridEnd {
			return nil, derasn1.ParseError(ridEnd, "responderID byKey did not consume its declared length")
		}
		data.responderKeyHash = keyHash
		data.hasResponderKeyHash = true
	default:
		return nil, derasn1.ParseError(ridStart, "unrecognised ResponderID tag 0x%02x", ridTag)
	}

	producedAt, err := readTime(c)
	if err != nil {
		return nil, err
	}
	data.producedAt = producedAt

	respListLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	respListEnd := c.Pos() + respListLen
	for c.Pos() < respListEnd {
		rec, err := parseSingleResponse(c)
		if err != nil {
			return nil, err
		}
		data.responses = append(data.responses, rec)
	}
	if c.Pos() != respListEnd {
		return nil, derasn1.ParseError(respListEnd, "responses did not consume its declared length")
	}
	if len(data.responses) == 0 {
		return nil, ParseError("OCSP response contains bad number of responses")
	}

	if c.Pos() < tbsEnd {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b != derasn1.ContextTag(1, true) {
			return nil, derasn1.ParseError(c.Pos(), "unexpected trailing field in ResponseData")
		}
		c.ReadTag()
		extLen, err := c.ReadLength()
		if err != nil {
			return nil, err
		}
		extEnd := c.Pos() + extLen
		innerSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return nil, err
		}
		if c.Pos()+innerSeqLen != extEnd {
			return nil, derasn1.ParseError(extEnd, "responseExtensions SEQUENCE did not match [1] wrapper length")
		}
		exts, err := pkix.ParseExtensions(c, extEnd)
		if err != nil {
			return nil, err
		}
		data.responseExtensions = exts
		for _, ext := range exts {
			if id, ok := oid.Lookup(oid.OcspType, ext.OIDSum, ext.OIDRaw); ok && id == oid.OcspNonce {
				data.nonce = ext.Value
				data.hasNonce = true
			}
		}
	}

	if c.Pos() != tbsEnd {
		return nil, derasn1.ParseError(tbsEnd, "ResponseData did not consume its declared length")
	}
	data.tbsResponseData = der[tbsStart:tbsEnd]

	sigAlg, err := pkix.ParseAlgorithmIdentifier(c)
	if err != nil {
		return nil, err
	}
	sigID, ok := oid.Lookup(oid.SigType, sigAlg.OIDSum, sigAlg.OIDRaw)
	if !ok {
		return nil, derasn1.ObjectIdError(c.Pos(), "unrecognised BasicOCSPResponse signatureAlgorithm OID")
	}
	data.sigAlgID = sigID

	sigBits, err := derasn1.ReadBitString(c)
	if err != nil {
		return nil, err
	}
	data.signature = sigBits.RightAlign()

	if c.Pos() < end {
		b, err := c.PeekByte()
		if err != nil {
			return nil, err
		}
		if b != derasn1.ContextTag(0, true) {
			return nil, derasn1.ParseError(c.Pos(), "unexpected trailing field in BasicOCSPResponse")
		}
		c.ReadTag()
		certsLen, err := c.ReadLength()
		if err != nil {
			return nil, err
		}
		certsEnd := c.Pos() + certsLen
		innerSeqLen, err := derasn1.ReadSequenceHeader(c)
		if err != nil {
			return nil, err
		}
		innerEnd := c.Pos() + innerSeqLen
		if innerEnd != certsEnd {
			return nil, derasn1.ParseError(certsEnd, "certs SEQUENCE did not match [0] wrapper length")
		}
		for c.Pos() < innerEnd {
			start := c.Pos()
			certSeqLen, err := derasn1.ReadSequenceHeader(c)
			if err != nil {
				return nil, err
			}
			if err := c.Skip(certSeqLen); err != nil {
				return nil, err
			}
			data.certificates = append(data.certificates, der[start:c.Pos()])
		}
		if c.Pos() != innerEnd {
			return nil, derasn1.ParseError(innerEnd, "certs did not consume its declared length")
		}
	}

	if c.Pos() != end {
		return nil, derasn1.ParseError(end, "BasicOCSPResponse did not consume its declared length")
	}
	return data, nil
}

// ParseResponse decodes an OCSP response that must contain exactly one
// SingleResponse. Use ParseResponseForCert for multi-status responses.
func ParseResponse(der []byte) (*Response, error) {
	return ParseResponseForCert(der, nil)
}

// ParseResponseForCert decodes an OCSP response, selecting the
// SingleResponse matching serial (or the sole one present, if serial
// is nil and the response carries exactly one). Status values other
// than Success yield a ResponseError rather than a parsed Response.
func ParseResponseForCert(der []byte, serial *big.Int) (*Response, error) {
	c := derasn1.NewCursor(der)
	outerSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	outerEnd := c.Pos() + outerSeqLen

	status, err := readEnumerated(c)
	if err != nil {
		return nil, err
	}
	if ResponseStatus(status) != Success {
		if c.Pos() != outerEnd {
			b, err := c.PeekByte()
			if err == nil && b == derasn1.ContextTag(0, true) {
				// an error response may still carry an (unused) empty
				// responseBytes; skip it rather than treating it as
				// malformed framing.
				c.ReadTag()
				length, _ := c.ReadLength()
				c.Skip(length)
			}
		}
		return nil, ResponseError{Status: ResponseStatus(status)}
	}

	if c.Pos() >= outerEnd {
		return nil, ParseError("OCSP response is missing responseBytes")
	}
	b, err := c.PeekByte()
	if err != nil {
		return nil, err
	}
	if b != derasn1.ContextTag(0, true) {
		return nil, derasn1.ParseError(c.Pos(), "expected [0] responseBytes")
	}
	c.ReadTag()
	rbLen, err := c.ReadLength()
	if err != nil {
		return nil, err
	}
	rbEnd := c.Pos() + rbLen

	rbSeqLen, err := derasn1.ReadSequenceHeader(c)
	if err != nil {
		return nil, err
	}
	if c.Pos()+rbSeqLen != rbEnd {
		return nil, derasn1.ParseError(rbEnd, "ResponseBytes SEQUENCE did not match [0] wrapper length")
	}

	respTypeRaw, respTypeSum, err := derasn1.ReadOIDBytes(c)
	if err != nil {
		return nil, err
	}
	basicID, ok := oid.Lookup(oid.OcspType, respTypeSum, respTypeRaw)
	if !ok || basicID != oid.OcspBasic {
		return nil, ParseError("bad OCSP response type")
	}
	respBytes, err := derasn1.ReadOctetString(c)
	if err != nil {
		return nil, err
	}
	if c.Pos() != rbEnd {
		return nil, derasn1.ParseError(rbEnd, "ResponseBytes did not consume its declared length")
	}
	if c.Pos() != outerEnd {
		return nil, derasn1.ParseError(outerEnd, "OCSPResponse did not consume its declared length")
	}

	basic, err := parseBasicResponse(respBytes)
	if err != nil {
		return nil, err
	}

	var rec singleResponseRecord
	if serial == nil {
		if len(basic.responses) != 1 {
			return nil, ParseError("OCSP response contains bad number of responses")
		}
		rec = basic.responses[0]
	} else {
		matched := false
		for _, r := range basic.responses {
			if r.serial.Cmp(serial) == 0 {
				rec = r
				matched = true
				break
			}
		}
		if !matched {
			return nil, ParseError("no response matching the supplied certificate")
		}
	}

	return &Response{
		Raw:                  der,
		Status:               rec.status,
		SerialNumber:         rec.serial,
		IssuerHashAlgID:      rec.hashAlgID,
		IssuerNameHash:       rec.issuerNameHash,
		IssuerKeyHash:        rec.issuerKeyHash,
		ProducedAt:           basic.producedAt,
		ThisUpdate:           rec.thisUpdate,
		NextUpdate:           rec.nextUpdate,
		HasNextUpdate:        rec.hasNextUpdate,
		RevokedAt:            rec.revokedAt,
		RevocationReason:     rec.reason,
		HasRevocationReason:  rec.hasReason,
		TBSResponseData:      basic.tbsResponseData,
		SignatureAlgID:       basic.sigAlgID,
		Signature:            basic.signature,
		RawResponderName:     basic.rawResponderName,
		HasResponderName:     basic.hasResponderName,
		ResponderKeyHash:     basic.responderKeyHash,
		HasResponderKeyHash:  basic.hasResponderKeyHash,
		Certificates:         basic.certificates,
		Nonce:                basic.nonce,
		HasNonce:             basic.hasNonce,
		SingleExtensions:     rec.extensions,
		ResponseExtensions:   basic.responseExtensions,
	}, nil
}

// CreateResponseOptions carries the fields CreateResponse needs beyond
// what naturally lives on Response, split out since this package's
// Response has no signing key or responder-name field of its own.
type CreateResponseOptions struct {
	HashAlgID         int // for IssuerNameHash/IssuerKeyHash, default oid.HashSHA1
	IssuerNameHash    []byte
	IssuerKeyHash     []byte
	SerialNumber      *big.Int
	Status            int
	RevokedAt         derasn1.DateTime
	RevocationReason  int
	HasRevocationReason bool
	ThisUpdate        derasn1.DateTime
	NextUpdate        derasn1.DateTime
	HasNextUpdate     bool
	ProducedAt        derasn1.DateTime
	ResponderName     *pkix.Name // exactly one of ResponderName/ResponderKeyHash must be set
	ResponderKeyHash  []byte
	Nonce             []byte
	ExtraExtensions   []pkix.Extension
	Certificates      [][]byte

	// SignatureAlgID and Signature are computed by the caller (this
	// package does not hold private key material) and copied in
	// verbatim: build TBSResponseData via BuildTBSResponseData, sign
	// it, then pass the signature here.
	SignatureAlgID int
	Signature      []byte
}

// BuildTBSResponseData encodes the signed ResponseData portion of a
// BasicOCSPResponse so the caller can sign it with whatever private
// key material it holds, then pass the signature to CreateResponse.
func BuildTBSResponseData(opts CreateResponseOptions) ([]byte, error) {
	hashAlgID := opts.HashAlgID
	if hashAlgID == 0 && opts.IssuerNameHash != nil {
		hashAlgID = oid.HashSHA1
	}

	var respBody []byte
	respBody = encodeCertID(respBody, hashAlgID, opts.IssuerNameHash, opts.IssuerKeyHash, opts.SerialNumber)
	respBody = encodeCertStatus(respBody, opts.Status, opts.RevokedAt, opts.RevocationReason, opts.HasRevocationReason)
	respBody = derasn1.EncodeGeneralizedTime(respBody, opts.ThisUpdate)
	if opts.HasNextUpdate {
		var nu []byte
		nu = derasn1.EncodeGeneralizedTime(nu, opts.NextUpdate)
		var wrapped []byte
		wrapped = append(wrapped, derasn1.ContextTag(0, true))
		wrapped = derasn1.EncodeLength(wrapped, len(nu))
		wrapped = append(wrapped, nu...)
		respBody = append(respBody, wrapped...)
	}
	if len(opts.ExtraExtensions) > 0 {
		extBlock := pkix.EncodeExtensions(nil, opts.ExtraExtensions)
		var wrapped []byte
		wrapped = append(wrapped, derasn1.ContextTag(1, true))
		wrapped = derasn1.EncodeLength(wrapped, len(extBlock))
		wrapped = append(wrapped, extBlock...)
		respBody = append(respBody, wrapped...)
	}
	var respSeq []byte
	respSeq = derasn1.EncodeHeader(respSeq, derasn1.TagSequence|0x20, len(respBody))
	respSeq = append(respSeq, respBody...)

	var respList []byte
	respList = derasn1.EncodeHeader(respList, derasn1.TagSequence|0x20, len(respSeq))
	respList = append(respList, respSeq...)

	var responderID []byte
	switch {
	case opts.ResponderName != nil:
		var wrapped []byte
		wrapped = append(wrapped, derasn1.ContextTag(1, true))
		wrapped = derasn1.EncodeLength(wrapped, len(opts.ResponderName.Raw))
		responderID = append(wrapped, opts.ResponderName.Raw...)
	case opts.ResponderKeyHash != nil:
		var kh []byte
		kh = derasn1.EncodeOctetString(kh, opts.ResponderKeyHash)
		var wrapped []byte
		wrapped = append(wrapped, derasn1.ContextTag(2, true))
		wrapped = derasn1.EncodeLength(wrapped, len(kh))
		responderID = append(wrapped, kh...)
	default:
		return nil, errors.New("ocsp: CreateResponseOptions must set exactly one of ResponderName/ResponderKeyHash")
	}

	var tbs []byte
	tbs = append(tbs, responderID...)
	tbs = derasn1.EncodeGeneralizedTime(tbs, opts.ProducedAt)
	tbs = append(tbs, respList...)

	var nonceExt []pkix.Extension
	if len(opts.Nonce) > 0 {
		nonceOID, err := oid.Bytes(oid.OcspType, oid.OcspNonce)
		if err != nil {
			return nil, err
		}
		nonceExt = append(nonceExt, pkix.Extension{OIDRaw: nonceOID, Value: opts.Nonce})
	}
	if len(nonceExt) > 0 {
		extBlock := pkix.EncodeExtensions(nil, nonceExt)
		var wrapped []byte
		wrapped = append(wrapped, derasn1.ContextTag(1, true))
		wrapped = derasn1.EncodeLength(wrapped, len(extBlock))
		wrapped = append(wrapped, extBlock...)
		tbs = append(tbs, wrapped...)
	}

	var tbsSeq []byte
	tbsSeq = derasn1.EncodeHeader(tbsSeq, derasn1.TagSequence|0x20, len(tbs))
	return append(tbsSeq, tbs...), nil
}

func encodeCertStatus(dst []byte, status int, revokedAt derasn1.DateTime, reason int, hasReason bool) []byte {
	switch status {
	case Good:
		return append(dst, derasn1.ContextTag(0, false), 0x00)
	case Unknown:
		return append(dst, derasn1.ContextTag(2, false), 0x00)
	default:
		var content []byte
		content = derasn1.EncodeGeneralizedTime(content, revokedAt)
		if hasReason {
			var r []byte
			r = encodeEnumerated(r, int64(reason))
			var wrapped []byte
			wrapped = append(wrapped, derasn1.ContextTag(0, true))
			wrapped = derasn1.EncodeLength(wrapped, len(r))
			wrapped = append(wrapped, r...)
			content = append(content, wrapped...)
		}
		dst = append(dst, derasn1.ContextTag(1, true))
		dst = derasn1.EncodeLength(dst, len(content))
		return append(dst, content...)
	}
}

// CreateResponse assembles the full OCSPResponse given a
// BuildTBSResponseData result already signed into opts.Signature.
func CreateResponse(tbsResponseData []byte, opts CreateResponseOptions) ([]byte, error) {
	if len(opts.Signature) == 0 {
		return nil, errors.New("ocsp: CreateResponseOptions.Signature is required")
	}
	sigOID, err := oid.Bytes(oid.SigType, opts.SignatureAlgID)
	if err != nil {
		return nil, err
	}

	var basic []byte
	basic = append(basic, tbsResponseData...)
	basic = pkix.EncodeAlgorithmIdentifier(basic, sigOID, true)
	basic = derasn1.EncodeBitString(basic, opts.Signature, 0)

	if len(opts.Certificates) > 0 {
		var certsBody []byte
		for _, certDER := range opts.Certificates {
			certsBody = append(certsBody, certDER...)
		}
		var certsSeq []byte
		certsSeq = derasn1.EncodeHeader(certsSeq, derasn1.TagSequence|0x20, len(certsBody))
		certsSeq = append(certsSeq, certsBody...)
		var wrapped []byte
		wrapped = append(wrapped, derasn1.ContextTag(0, true))
		wrapped = derasn1.EncodeLength(wrapped, len(certsSeq))
		wrapped = append(wrapped, certsSeq...)
		basic = append(basic, wrapped...)
	}

	var basicSeq []byte
	basicSeq = derasn1.EncodeHeader(basicSeq, derasn1.TagSequence|0x20, len(basic))
	basicSeq = append(basicSeq, basic...)

	basicOID, err := oid.Bytes(oid.OcspType, oid.OcspBasic)
	if err != nil {
		return nil, err
	}
	var respBytes []byte
	respBytes = derasn1.EncodeOIDBytes(respBytes, basicOID)
	respBytes = derasn1.EncodeOctetString(respBytes, basicSeq)
	var respBytesSeq []byte
	respBytesSeq = derasn1.EncodeHeader(respBytesSeq, derasn1.TagSequence|0x20, len(respBytes))
	respBytesSeq = append(respBytesSeq, respBytes...)

	var wrapped []byte
	wrapped = append(wrapped, derasn1.ContextTag(0, true))
	wrapped = derasn1.EncodeLength(wrapped, len(respBytesSeq))
	wrapped = append(wrapped, respBytesSeq...)

	var out []byte
	out = encodeEnumerated(out, int64(Success))
	out = append(out, wrapped...)

	var outSeq []byte
	outSeq = derasn1.EncodeHeader(outSeq, derasn1.TagSequence|0x20, len(out))
	return append(outSeq, out...), nil
}
