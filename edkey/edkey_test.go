package edkey

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.step.sm/ocsp/oid"
)

func TestPrivateKeyRoundTrip(t *testing.T) {
	value := make([]byte, Ed25519Size)
	for i := range value {
		value[i] = byte(i)
	}
	k := PrivateKey{KeyID: oid.KeyEd25519, Value: value}

	var der []byte
	der = EncodePrivateKey(der, k)

	got, err := ParsePrivateKey(der, oid.KeyEd25519)
	require.NoError(t, err)
	require.Equal(t, k, got)
}

func TestPrivateKeyRejectsWrongSize(t *testing.T) {
	der := []byte{0x04, 0x04, 0x01, 0x02, 0x03, 0x04}
	_, err := ParsePrivateKey(der, oid.KeyEd25519)
	require.Error(t, err)
}

func TestPublicKeyRoundTrip(t *testing.T) {
	value := make([]byte, Ed448Size)
	pub := PublicKey{KeyID: oid.KeyEd448, Value: value}

	var der []byte
	der = EncodePublicKey(der, pub)

	got, err := ParsePublicKey(der)
	require.NoError(t, err)
	require.Equal(t, pub, got)
}
