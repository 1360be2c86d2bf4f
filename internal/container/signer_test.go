package container

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDebugSigner parses the bundled development key.
func TestDebugSigner(t *testing.T) {
	t.Parallel()

	signer, err := DebugSigner()
	require.NoError(t, err)
	require.NotNil(t, signer.Certificate())

	der, err := signer.keyDER()
	require.NoError(t, err)

	_, err = x509.ParsePKCS8PrivateKey(der)
	require.NoError(t, err)

	block, _ := pem.Decode(signer.certificatePEM())
	require.NotNil(t, block)
	require.Equal(t, "CERTIFICATE", block.Type)
}

// TestNewSigner_ECKey accepts SEC 1 keys paired with their certificate.
func TestNewSigner_ECKey(t *testing.T) {
	t.Parallel()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	certificate, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	keyBytes, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	bundle := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	bundle = append(bundle, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certificate})...)

	signer, err := NewSigner(bundle)
	require.NoError(t, err)
	require.Equal(t, "test", signer.Certificate().Subject.CommonName)

	other, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	otherBytes, err := x509.MarshalECPrivateKey(other)
	require.NoError(t, err)

	mismatched := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: otherBytes})
	mismatched = append(mismatched, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certificate})...)

	_, err = NewSigner(mismatched)
	require.ErrorIs(t, err, ErrInvalidPEM)
}

// TestNewSigner_Invalid rejects incomplete or malformed bundles.
func TestNewSigner_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewSigner([]byte("not a pem file"))
	require.ErrorIs(t, err, ErrInvalidPEM)

	keyOnly, _ := pem.Decode(debugPEM)
	require.NotNil(t, keyOnly)

	_, err = NewSigner(pem.EncodeToMemory(keyOnly))
	require.ErrorIs(t, err, ErrInvalidPEM)

	_, err = NewSigner(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte("garbage")}))
	require.ErrorIs(t, err, ErrInvalidPEM)
}
