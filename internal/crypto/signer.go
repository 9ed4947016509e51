// Package crypto provides RSA request signing and encrypted key storage for
// venue API credentials.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
)

// RequestSigner produces the signature header for an authenticated REST
// request.
type RequestSigner interface {
	Sign(timestamp, method, path string) (string, error)
}

// RSASigner signs timestamp+method+path with RSA-PSS over SHA-256 and
// returns the base64 standard encoding of the signature.
type RSASigner struct {
	key *rsa.PrivateKey
}

// NewRSASigner wraps an already parsed private key.
func NewRSASigner(key *rsa.PrivateKey) (*RSASigner, error) {
	if key == nil {
		return nil, errors.New("crypto: nil RSA private key")
	}
	return &RSASigner{key: key}, nil
}

// Sign implements RequestSigner.
func (s *RSASigner) Sign(timestamp, method, path string) (string, error) {
	hash := sha256.Sum256([]byte(timestamp + method + path))
	sig, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return "", fmt.Errorf("crypto: RSA sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// PublicKey returns the public half of the signing key.
func (s *RSASigner) PublicKey() *rsa.PublicKey {
	return &s.key.PublicKey
}

// ParseRSAPrivateKey decodes a PEM block holding a PKCS#1 or PKCS#8 RSA key.
func ParseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("crypto: no PEM block found in private key")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key (tried PKCS#1 and PKCS#8): %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("crypto: expected RSA private key, got %T", key)
	}
	return rsaKey, nil
}

// LoadRSASigner resolves the PEM through LoadKey and builds a signer.
func LoadRSASigner(cfg KeyConfig) (*RSASigner, error) {
	pemBytes, err := LoadKey(cfg)
	if err != nil {
		return nil, err
	}
	key, err := ParseRSAPrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}
	return NewRSASigner(key)
}
