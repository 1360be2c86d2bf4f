package container

import (
	"crypto"
	"crypto/x509"
	_ "embed"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrInvalidPEM is returned when signing material cannot be parsed.
var ErrInvalidPEM = errors.New("invalid pem signing material")

//go:embed assets/debug.pem
var debugPEM []byte

// Signer is a private key with its certificate.
type Signer struct {
	// key is the private key.
	key crypto.Signer
	// certificate is the signing certificate.
	certificate *x509.Certificate
}

// NewSigner parses a PEM bundle holding a private key (PKCS#8, PKCS#1 or SEC 1)
// and the matching certificate.
func NewSigner(data []byte) (*Signer, error) {
	var (
		signer Signer
		block  *pem.Block
		rest   = data
	)

	for {
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		switch block.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			key, err := parsePrivateKey(block)
			if err != nil {
				return nil, err
			}

			signer.key = key
		case "CERTIFICATE":
			if signer.certificate != nil {
				continue
			}

			certificate, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: certificate: %w", ErrInvalidPEM, err)
			}

			signer.certificate = certificate
		}
	}

	if signer.key == nil {
		return nil, fmt.Errorf("%w: no private key", ErrInvalidPEM)
	}

	if signer.certificate == nil {
		return nil, fmt.Errorf("%w: no certificate", ErrInvalidPEM)
	}

	publicKey, ok := signer.key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !publicKey.Equal(signer.certificate.PublicKey) {
		return nil, fmt.Errorf("%w: private key does not match certificate", ErrInvalidPEM)
	}

	return &signer, nil
}

// DebugSigner returns the bundled development signer.
func DebugSigner() (*Signer, error) {
	return NewSigner(debugPEM)
}

// Certificate returns the signing certificate.
func (s *Signer) Certificate() *x509.Certificate {
	return s.certificate
}

// keyDER returns the private key as PKCS#8 DER, the format apksigner reads.
func (s *Signer) keyDER() ([]byte, error) {
	return x509.MarshalPKCS8PrivateKey(s.key)
}

// certificatePEM returns the certificate PEM encoded.
func (s *Signer) certificatePEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: s.certificate.Raw})
}

func parsePrivateKey(block *pem.Block) (crypto.Signer, error) {
	var (
		key any
		err error
	)

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", ErrInvalidPEM, err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported private key type %T", ErrInvalidPEM, key)
	}

	return signer, nil
}
