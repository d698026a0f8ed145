package firma

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

const xmlDemo = `<?xml version="1.0" encoding="UTF-8"?>
<ECF>
  <Encabezado>
    <IdDoc>
      <TipoeCF>32</TipoeCF>
      <eNCF>E32A00000001</eNCF>
    </IdDoc>
  </Encabezado>
</ECF>`

// certificadoDePrueba builds a self-signed RSA certificate valid in
// [notBefore, notAfter].
func certificadoDePrueba(t *testing.T, notBefore, notAfter time.Time) *Certificado {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	plantilla := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Comercial Demo SRL", Organization: []string{"Demo"}},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, plantilla, plantilla, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &Certificado{PrivateKey: key, Cert: cert}
}

func TestValidarVigencia(t *testing.T) {
	ahora := time.Now()

	vigente := certificadoDePrueba(t, ahora.Add(-time.Hour), ahora.Add(24*time.Hour))
	assert.NoError(t, vigente.ValidarVigencia(ahora))

	vencido := certificadoDePrueba(t, ahora.Add(-48*time.Hour), ahora.Add(-time.Hour))
	assert.ErrorIs(t, vencido.ValidarVigencia(ahora), ErrFirmaRechazada)

	futuro := certificadoDePrueba(t, ahora.Add(time.Hour), ahora.Add(48*time.Hour))
	assert.ErrorIs(t, futuro.ValidarVigencia(ahora), ErrFirmaRechazada)
}

func TestFirmar_SinCertificado(t *testing.T) {
	f := NewFirmador(false)
	_, err := f.Firmar([]byte(xmlDemo), nil)
	assert.ErrorIs(t, err, ErrFirmaRechazada)
}

func TestFirmar_CertificadoVencido(t *testing.T) {
	ahora := time.Now()
	cert := certificadoDePrueba(t, ahora.Add(-48*time.Hour), ahora.Add(-time.Hour))

	f := NewFirmador(false)
	firmado, err := f.Firmar([]byte(xmlDemo), cert)
	assert.ErrorIs(t, err, ErrFirmaRechazada)
	assert.Nil(t, firmado, "ningún XML sale cuando la firma falla")
}

func TestFirmar_XMLInvalido(t *testing.T) {
	ahora := time.Now()
	cert := certificadoDePrueba(t, ahora.Add(-time.Hour), ahora.Add(24*time.Hour))

	f := NewFirmador(false)
	_, err := f.Firmar([]byte("esto no es xml <"), cert)
	assert.ErrorIs(t, err, ErrFirmaRechazada)
}

func TestFirmar_EnvolventeValida(t *testing.T) {
	ahora := time.Now()
	cert := certificadoDePrueba(t, ahora.Add(-time.Hour), ahora.Add(24*time.Hour))

	f := NewFirmador(false)
	firmado, err := f.Firmar([]byte(xmlDemo), cert)
	require.NoError(t, err)

	s := string(firmado)
	assert.Contains(t, s, "<eNCF>E32A00000001</eNCF>", "el contenido original se preserva")
	assert.Contains(t, s, "SignatureValue")
	assert.Contains(t, s, "X509Certificate")
}

func TestFirmar_Simulada(t *testing.T) {
	f := NewFirmador(true)
	firmado, err := f.Firmar([]byte(xmlDemo), nil)
	require.NoError(t, err)

	s := string(firmado)
	// La firma simulada nunca es silenciosa: queda etiquetada como inválida
	assert.Contains(t, s, "FIRMA-SIMULADA-NO-VALIDA")
	assert.Contains(t, s, "<eNCF>E32A00000001</eNCF>")
}

func TestCargarCertificado(t *testing.T) {
	ahora := time.Now()
	cert := certificadoDePrueba(t, ahora.Add(-time.Hour), ahora.Add(24*time.Hour))

	p12, err := pkcs12.Modern.Encode(cert.PrivateKey, cert.Cert, nil, "secreto-demo")
	require.NoError(t, err)

	ruta := filepath.Join(t.TempDir(), "demo.p12")
	require.NoError(t, os.WriteFile(ruta, p12, 0o600))

	cargado, err := CargarCertificado(ruta, "secreto-demo")
	require.NoError(t, err)
	assert.Equal(t, cert.Cert.SerialNumber, cargado.Cert.SerialNumber)

	// Passphrase incorrecta
	_, err = CargarCertificado(ruta, "incorrecta")
	assert.ErrorIs(t, err, ErrFirmaRechazada)

	// Archivo inexistente
	_, err = CargarCertificado(filepath.Join(t.TempDir(), "no-existe.p12"), "x")
	assert.ErrorIs(t, err, ErrFirmaRechazada)
}
