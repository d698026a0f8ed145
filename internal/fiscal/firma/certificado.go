// Package firma signs e-CF documents with the business's .p12 certificate.
// Every invalidity path fails closed: no unsigned or half-signed XML ever
// leaves this package.
package firma

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// ErrFirmaRechazada wraps every signing refusal: unreadable file, bad
// passphrase, non-RSA key, certificate outside its validity window.
var ErrFirmaRechazada = errors.New("firma rechazada")

// Certificado bundles the decoded signing material.
type Certificado struct {
	PrivateKey *rsa.PrivateKey
	Cert       *x509.Certificate
	CACerts    []*x509.Certificate
}

// CargarCertificado reads and decodes a PKCS#12 bundle. The passphrase comes
// from the caller (resolved from the Negocio's env var) and is never stored.
func CargarCertificado(path, passphrase string) (*Certificado, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: leyendo certificado %s: %v", ErrFirmaRechazada, path, err)
	}

	key, cert, cas, err := pkcs12.DecodeChain(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: decodificando p12: %v", ErrFirmaRechazada, err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: la clave privada no es RSA", ErrFirmaRechazada)
	}

	return &Certificado{PrivateKey: rsaKey, Cert: cert, CACerts: cas}, nil
}

// ValidarVigencia refuses certificates outside their validity window.
func (c *Certificado) ValidarVigencia(ref time.Time) error {
	if ref.Before(c.Cert.NotBefore) {
		return fmt.Errorf("%w: certificado aún no vigente (desde %s)",
			ErrFirmaRechazada, c.Cert.NotBefore.Format("2006-01-02"))
	}
	if ref.After(c.Cert.NotAfter) {
		return fmt.Errorf("%w: certificado vencido (hasta %s)",
			ErrFirmaRechazada, c.Cert.NotAfter.Format("2006-01-02"))
	}
	return nil
}
