package firma

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
)

// keyStore adapts Certificado to goxmldsig's X509KeyStore.
type keyStore struct{ cert *Certificado }

func (k keyStore) GetKeyPair() (*rsa.PrivateKey, []byte, error) {
	return k.cert.PrivateKey, k.cert.Cert.Raw, nil
}

// Firmador applies an enveloped XMLDSig (RSA-SHA256, C14N 1.0) to e-CF
// documents. Simulada mode produces an explicitly labeled fake signature for
// environments without a real certificate; it is never silent.
type Firmador struct {
	simulada bool
}

func NewFirmador(simulada bool) *Firmador {
	return &Firmador{simulada: simulada}
}

// Firmar signs the canonical XML with the given certificate. The certificate
// validity is re-checked at signing time; any failure aborts with
// ErrFirmaRechazada and no output.
func (f *Firmador) Firmar(xmlCanonico []byte, cert *Certificado) ([]byte, error) {
	if f.simulada {
		return f.firmaSimulada(xmlCanonico)
	}
	if cert == nil {
		return nil, fmt.Errorf("%w: sin certificado cargado", ErrFirmaRechazada)
	}
	if err := cert.ValidarVigencia(time.Now()); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlCanonico); err != nil {
		return nil, fmt.Errorf("%w: XML inválido: %v", ErrFirmaRechazada, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: documento sin raíz", ErrFirmaRechazada)
	}

	ctx := dsig.NewDefaultSigningContext(keyStore{cert: cert})
	ctx.Canonicalizer = dsig.MakeC14N10RecCanonicalizer()
	if err := ctx.SetSignatureMethod(dsig.RSASHA256SignatureMethod); err != nil {
		return nil, fmt.Errorf("%w: método de firma: %v", ErrFirmaRechazada, err)
	}

	signed, err := ctx.SignEnveloped(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFirmaRechazada, err)
	}

	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	out.SetRoot(signed)
	return out.WriteToBytes()
}

// firmaSimulada appends a clearly labeled placeholder signature. Only for
// FIRMA_SIMULADA environments; DGII will reject these documents.
func (f *Firmador) firmaSimulada(xmlCanonico []byte) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlCanonico); err != nil {
		return nil, fmt.Errorf("%w: XML inválido: %v", ErrFirmaRechazada, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: documento sin raíz", ErrFirmaRechazada)
	}
	sig := root.CreateElement("Signature")
	sig.CreateAttr("xmlns", "http://www.w3.org/2000/09/xmldsig#")
	sig.CreateElement("SignatureValue").SetText("FIRMA-SIMULADA-NO-VALIDA")
	return doc.WriteToBytes()
}
