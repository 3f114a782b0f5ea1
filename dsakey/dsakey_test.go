package dsakey

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/derasn1"
)

func TestParametersRoundTrip(t *testing.T) {
	params := Parameters{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(4)}
	var der []byte
	der = EncodeParameters(der, params)

	c := derasn1.NewCursor(der)
	got, err := ParseParameters(c)
	require.NoError(t, err)
	require.Equal(t, params.P, got.P)
	require.Equal(t, params.Q, got.Q)
	require.Equal(t, params.G, got.G)
}

func TestPrivateKeyBareFormRoundTrip(t *testing.T) {
	k := PrivateKey{
		Parameters: Parameters{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(4)},
		X:          big.NewInt(7),
	}
	var der []byte
	der = EncodePrivateKey(der, k)

	got, err := ParsePrivateKeyAuto(der)
	require.NoError(t, err)
	require.Equal(t, k.P, got.P)
	require.Equal(t, k.Q, got.Q)
	require.Equal(t, k.G, got.G)
	require.Equal(t, k.X, got.X)
}

func TestPublicKeyRoundTrip(t *testing.T) {
	params := Parameters{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(4)}
	pub := PublicKey{Parameters: params, Y: big.NewInt(9)}
	var der []byte
	der = EncodePublicKey(der, pub)

	got, err := ParsePublicKey(der, params)
	require.NoError(t, err)
	require.Equal(t, pub.Y, got.Y)
}
