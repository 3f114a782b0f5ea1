package eckey

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/oid"
)

func TestPrivateKeyRoundTrip(t *testing.T) {
	curveOID, err := oid.Bytes(oid.CurveType, oid.CurveP256)
	require.NoError(t, err)
	point := append([]byte{0x04}, make([]byte, 64)...)
	k := PrivateKey{D: big.NewInt(12345), CurveOIDRaw: curveOID, CurveID: oid.CurveP256}

	var der []byte
	der = EncodePrivateKey(der, k, point)

	got, err := ParsePrivateKey(der)
	require.NoError(t, err)
	require.Equal(t, k.D, got.D)
	require.Equal(t, oid.CurveP256, got.CurveID)
	require.Equal(t, point, got.PublicPoint)
}

func TestPublicKeyRoundTrip(t *testing.T) {
	curveOID, err := oid.Bytes(oid.CurveType, oid.CurveP256)
	require.NoError(t, err)
	point := append([]byte{0x04}, make([]byte, 64)...)
	pub := PublicKey{CurveOIDRaw: curveOID, CurveID: oid.CurveP256, Point: point}

	var der []byte
	der = EncodePublicKey(der, pub)

	got, err := ParsePublicKey(der)
	require.NoError(t, err)
	require.Equal(t, pub.Point, got.Point)
	require.Equal(t, oid.CurveP256, got.CurveID)
}

func TestPublicKeyRejectsCompressedPoint(t *testing.T) {
	curveOID, _ := oid.Bytes(oid.CurveType, oid.CurveP256)
	pub := PublicKey{CurveOIDRaw: curveOID, Point: append([]byte{0x02}, make([]byte, 32)...)}
	var der []byte
	der = EncodePublicKey(der, pub)
	_, err := ParsePublicKey(der)
	require.Error(t, err)
}
