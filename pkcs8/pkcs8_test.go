package pkcs8

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/oid"
)

func TestRoundTripRSA(t *testing.T) {
	body := []byte{0x30, 0x03, 0x02, 0x01, 0x00}
	var der []byte
	der = Encode(der, oid.KeyRSA, nil, body)

	info, err := Parse(der)
	require.NoError(t, err)
	require.Equal(t, oid.KeyRSA, info.KeyAlgID)
	require.Equal(t, body, info.PrivateKey)
}

func TestRoundTripEd25519ForbidsParams(t *testing.T) {
	body := make([]byte, 32)
	var der []byte
	der = Encode(der, oid.KeyEd25519, nil, body)

	info, err := Parse(der)
	require.NoError(t, err)
	require.Equal(t, oid.KeyEd25519, info.KeyAlgID)
	require.Nil(t, info.ParamsRaw)
}

func TestRoundTripECRequiresCurveOID(t *testing.T) {
	curveOID, err := oid.Bytes(oid.CurveType, oid.CurveP256)
	require.NoError(t, err)
	var paramsRaw []byte
	paramsRaw = append(paramsRaw, 0x06, byte(len(curveOID)))
	paramsRaw = append(paramsRaw, curveOID...)

	body := []byte{0x04, 0x20}
	body = append(body, make([]byte, 32)...)
	var der []byte
	der = Encode(der, oid.KeyEC, paramsRaw, body)

	info, err := Parse(der)
	require.NoError(t, err)
	require.Equal(t, oid.KeyEC, info.KeyAlgID)
	require.Equal(t, paramsRaw, info.ParamsRaw)
}

func TestParseRejectsBadVersion(t *testing.T) {
	der := []byte{0x30, 0x03, 0x02, 0x01, 0x01}
	_, err := Parse(der)
	require.Error(t, err)
}
