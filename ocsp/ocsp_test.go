package ocsp

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/derasn1"
	"go.step.sm/ocsp/oid"
	"go.step.sm/ocsp/pkix"
)

func TestCreateRequestParseRequestRoundTrip(t *testing.T) {
	nameHash := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	keyHash := []byte{20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	serial := big.NewInt(0xCAFE)
	nonce := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	der, err := CreateRequest(oid.HashSHA1, nameHash, keyHash, serial, nonce)
	require.NoError(t, err)

	req, err := ParseRequest(der)
	require.NoError(t, err)
	require.Equal(t, oid.HashSHA1, req.HashAlgID)
	require.Equal(t, nameHash, req.IssuerNameHash)
	require.Equal(t, keyHash, req.IssuerKeyHash)
	require.Equal(t, 0, serial.Cmp(req.SerialNumber))
	require.True(t, req.HasNonce)
	require.Equal(t, nonce, req.Nonce)
}

func TestCreateRequestParseRequestNoNonce(t *testing.T) {
	nameHash := make([]byte, 20)
	keyHash := make([]byte, 20)
	serial := big.NewInt(7)

	der, err := CreateRequest(oid.HashSHA1, nameHash, keyHash, serial, nil)
	require.NoError(t, err)

	req, err := ParseRequest(der)
	require.NoError(t, err)
	require.False(t, req.HasNonce)
	require.Nil(t, req.Nonce)
}

func buildSignedResponse(t *testing.T, opts CreateResponseOptions) []byte {
	t.Helper()
	tbs, err := BuildTBSResponseData(opts)
	require.NoError(t, err)
	opts.SignatureAlgID = oid.SigSHA256WithRSA
	opts.Signature = make([]byte, 16)
	der, err := CreateResponse(tbs, opts)
	require.NoError(t, err)
	return der
}

func TestCreateResponseParseResponseGood(t *testing.T) {
	nameHash := make([]byte, 20)
	keyHash := make([]byte, 20)
	serial := big.NewInt(0x1234)
	thisUpdate := derasn1.DateTime{Year: 2024, Mon: 1, Day: 1}
	producedAt := derasn1.DateTime{Year: 2024, Mon: 1, Day: 1}

	opts := CreateResponseOptions{
		IssuerNameHash: nameHash,
		IssuerKeyHash:  keyHash,
		SerialNumber:   serial,
		Status:         Good,
		ThisUpdate:     thisUpdate,
		ProducedAt:     producedAt,
		ResponderName:  &testNameForResponder,
	}
	der := buildSignedResponse(t, opts)

	resp, err := ParseResponse(der)
	require.NoError(t, err)
	require.Equal(t, Good, resp.Status)
	require.Equal(t, 0, serial.Cmp(resp.SerialNumber))
	require.True(t, resp.HasResponderName)
	require.False(t, resp.HasNextUpdate)
	require.Equal(t, oid.SigSHA256WithRSA, resp.SignatureAlgID)
}

var testNameForResponder = mustBuildName("Test Responder")

func mustBuildName(cn string) pkix.Name {
	oidRaw, err := oid.Bytes(oid.CertNameType, oid.NameCommonName)
	if err != nil {
		panic(err)
	}
	raw := pkix.EncodeName(nil, []pkix.AttributeTypeAndValue{
		{OIDRaw: oidRaw, Tag: derasn1.TagUTF8String, Value: []byte(cn)},
	})
	c := derasn1.NewCursor(raw)
	name, err := pkix.ParseName(c)
	if err != nil {
		panic(err)
	}
	return name
}

func TestCreateResponseParseResponseRevoked(t *testing.T) {
	nameHash := make([]byte, 20)
	keyHash := make([]byte, 20)
	serial := big.NewInt(99)
	revokedAt := derasn1.DateTime{Year: 2023, Mon: 6, Day: 1}
	producedAt := derasn1.DateTime{Year: 2024, Mon: 1, Day: 1}

	opts := CreateResponseOptions{
		IssuerNameHash:      nameHash,
		IssuerKeyHash:       keyHash,
		SerialNumber:        serial,
		Status:              Revoked,
		RevokedAt:           revokedAt,
		RevocationReason:    KeyCompromise,
		HasRevocationReason: true,
		ThisUpdate:          derasn1.DateTime{Year: 2024, Mon: 1, Day: 1},
		ProducedAt:          producedAt,
		ResponderKeyHash:    keyHash,
	}
	der := buildSignedResponse(t, opts)

	resp, err := ParseResponse(der)
	require.NoError(t, err)
	require.Equal(t, Revoked, resp.Status)
	require.True(t, resp.HasRevocationReason)
	require.Equal(t, KeyCompromise, resp.RevocationReason)
	require.True(t, resp.HasResponderKeyHash)
	require.False(t, resp.HasResponderName)
}

func TestCreateResponseParseResponseWithNextUpdateAndNonce(t *testing.T) {
	nameHash := make([]byte, 20)
	keyHash := make([]byte, 20)
	serial := big.NewInt(5)
	nonce := []byte{1, 2, 3, 4}

	opts := CreateResponseOptions{
		IssuerNameHash: nameHash,
		IssuerKeyHash:  keyHash,
		SerialNumber:   serial,
		Status:         Good,
		ThisUpdate:     derasn1.DateTime{Year: 2024, Mon: 1, Day: 1},
		NextUpdate:     derasn1.DateTime{Year: 2024, Mon: 2, Day: 1},
		HasNextUpdate:  true,
		ProducedAt:     derasn1.DateTime{Year: 2024, Mon: 1, Day: 1},
		ResponderKeyHash: keyHash,
		Nonce:          nonce,
	}
	der := buildSignedResponse(t, opts)

	resp, err := ParseResponse(der)
	require.NoError(t, err)
	require.True(t, resp.HasNextUpdate)
	require.True(t, resp.HasNonce)
	require.Equal(t, nonce, resp.Nonce)
}

func TestParseResponseForCertMatchesBySerial(t *testing.T) {
	nameHash := make([]byte, 20)
	keyHash := make([]byte, 20)
	target := big.NewInt(2)
	other := big.NewInt(3)

	opts := CreateResponseOptions{
		IssuerNameHash:   nameHash,
		IssuerKeyHash:    keyHash,
		SerialNumber:     target,
		Status:           Good,
		ThisUpdate:       derasn1.DateTime{Year: 2024, Mon: 1, Day: 1},
		ProducedAt:       derasn1.DateTime{Year: 2024, Mon: 1, Day: 1},
		ResponderKeyHash: keyHash,
	}
	der := buildSignedResponse(t, opts)

	resp, err := ParseResponseForCert(der, target)
	require.NoError(t, err)
	require.Equal(t, 0, target.Cmp(resp.SerialNumber))

	_, err = ParseResponseForCert(der, other)
	require.Error(t, err)
}

func TestParseResponseErrorStatus(t *testing.T) {
	var out []byte
	out = encodeEnumerated(out, int64(TryLater))
	var outSeq []byte
	outSeq = derasn1.EncodeHeader(outSeq, derasn1.TagSequence|0x20, len(out))
	outSeq = append(outSeq, out...)

	_, err := ParseResponse(outSeq)
	require.Error(t, err)
	var respErr ResponseError
	require.ErrorAs(t, err, &respErr)
	require.Equal(t, TryLater, respErr.Status)
}

func TestResponseStatusString(t *testing.T) {
	require.Equal(t, "success", Success.String())
	require.Equal(t, "malformed", Malformed.String())
	require.Equal(t, "unknown OCSP status", ResponseStatus(42).String())
}

func TestEnumeratedRoundTrip(t *testing.T) {
	var buf []byte
	buf = encodeEnumerated(buf, int64(AACompromise))
	c := derasn1.NewCursor(buf)
	v, err := readEnumerated(c)
	require.NoError(t, err)
	require.Equal(t, int64(AACompromise), v)
}
