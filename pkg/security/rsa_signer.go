package security

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"
	"github.com/sirosfoundation/go-esocial/internal/errs"
	"github.com/sirosfoundation/go-esocial/pkg/certificate"
)

// TimestampTTL is how long a signed envelope stays valid
const TimestampTTL = 5 * time.Minute

var oidSubjectKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 14}

// RSASigner signs SOAP 1.1 envelopes with an RSA key.
// Uses signedxml for the signature computation.
type RSASigner struct {
	privateKey     *rsa.PrivateKey
	publicKey      *rsa.PublicKey
	cert           *x509.Certificate
	hashAlgo       crypto.Hash
	digestHashAlgo crypto.Hash
	tokenReference TokenReferenceMethod
	now            func() time.Time
}

// NewRSASigner creates a signer using X509IssuerSerial token references
func NewRSASigner(privateKey *rsa.PrivateKey, cert *x509.Certificate, hashAlgo crypto.Hash) (*RSASigner, error) {
	return NewRSASignerWithTokenRef(privateKey, cert, hashAlgo, hashAlgo, TokenRefIssuerSerial)
}

// NewSignerFromKeyPair creates an RSA-SHA256 signer from a PEM key pair.
// Non-RSA keys are rejected with ErrSigningConfig.
func NewSignerFromKeyPair(pair *certificate.KeyPair) (*RSASigner, error) {
	if pair == nil {
		return nil, fmt.Errorf("%w: key pair is required", errs.ErrSigningConfig)
	}
	key, ok := pair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: signing key must be RSA, got %T", errs.ErrSigningConfig, pair.PrivateKey)
	}
	return NewRSASigner(key, pair.Leaf, crypto.SHA256)
}

// NewRSASignerWithTokenRef creates a signer with a specific token reference method
func NewRSASignerWithTokenRef(privateKey *rsa.PrivateKey, cert *x509.Certificate, hashAlgo, digestHashAlgo crypto.Hash, tokenRef TokenReferenceMethod) (*RSASigner, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("%w: private key is required", errs.ErrSigningConfig)
	}
	if cert == nil {
		return nil, fmt.Errorf("%w: certificate is required", errs.ErrSigningConfig)
	}

	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: certificate does not contain RSA public key", errs.ErrSigningConfig)
	}
	if !privateKey.PublicKey.Equal(publicKey) {
		return nil, fmt.Errorf("%w: private key does not match certificate", errs.ErrSigningConfig)
	}

	if hashAlgo == 0 {
		hashAlgo = crypto.SHA256
	}
	if digestHashAlgo == 0 {
		digestHashAlgo = crypto.SHA256
	}
	if tokenRef == "" {
		tokenRef = TokenRefIssuerSerial
	}

	return &RSASigner{
		privateKey:     privateKey,
		publicKey:      publicKey,
		cert:           cert,
		hashAlgo:       hashAlgo,
		digestHashAlgo: digestHashAlgo,
		tokenReference: tokenRef,
		now:            time.Now,
	}, nil
}

// NewRSAVerifier creates a verifier for envelopes signed by cert
func NewRSAVerifier(cert *x509.Certificate) (*RSASigner, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is required")
	}
	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate does not contain RSA public key")
	}

	return &RSASigner{
		publicKey:      publicKey,
		cert:           cert,
		hashAlgo:       crypto.SHA256,
		digestHashAlgo: crypto.SHA256,
		tokenReference: TokenRefIssuerSerial,
		now:            time.Now,
	}, nil
}

// Certificate returns the signing certificate
func (s *RSASigner) Certificate() *x509.Certificate {
	return s.cert
}

// SignEnvelope adds a wsse:Security header with a timestamp and a signature
// over the timestamp and the SOAP Body.
func (s *RSASigner) SignEnvelope(envelopeXML []byte) ([]byte, error) {
	if s.privateKey == nil {
		return nil, fmt.Errorf("private key is required for signing")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(envelopeXML); err != nil {
		return nil, fmt.Errorf("%w: failed to parse envelope: %w", errs.ErrParse, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: no root element found", errs.ErrParse)
	}
	soapPrefix := root.Space

	s.ensureNamespaces(root)

	body := findChild(root, "Body")
	if body == nil {
		return nil, fmt.Errorf("SOAP Body not found")
	}

	header := findChild(root, "Header")
	if header == nil {
		header = etree.NewElement(qualified(soapPrefix, "Header"))
		root.InsertChildAt(body.Index(), header)
	}

	security := findChild(header, "Security")
	if security == nil {
		security = header.CreateElement("wsse:Security")
		security.CreateAttr(qualified(soapPrefix, "mustUnderstand"), "1")
	}

	bstID := generateID("X509-")
	if s.tokenReference == TokenRefBinarySecurityToken {
		bst := security.CreateElement("wsse:BinarySecurityToken")
		bst.CreateAttr("wsu:Id", bstID)
		bst.CreateAttr("EncodingType", encodingBase64)
		bst.CreateAttr("ValueType", valueTypeX509v3)
		bst.SetText(base64.StdEncoding.EncodeToString(s.cert.Raw))
	}

	timestampID := generateID("TS-")
	timestamp := security.CreateElement("wsu:Timestamp")
	timestamp.CreateAttr("wsu:Id", timestampID)
	now := s.now().UTC()
	timestamp.CreateElement("wsu:Created").SetText(now.Format("2006-01-02T15:04:05.000Z"))
	timestamp.CreateElement("wsu:Expires").SetText(now.Add(TimestampTTL).Format("2006-01-02T15:04:05.000Z"))

	bodyID := s.getOrCreateID(body, "id-")

	sig := security.CreateElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NSXMLDSig)

	signedInfo := sig.CreateElement("ds:SignedInfo")

	c14nMethod := signedInfo.CreateElement("ds:CanonicalizationMethod")
	c14nMethod.CreateAttr("Algorithm", AlgorithmC14N)
	if soapPrefix != "" {
		c14nInclNS := c14nMethod.CreateElement("ec:InclusiveNamespaces")
		c14nInclNS.CreateAttr("xmlns:ec", AlgorithmC14N)
		c14nInclNS.CreateAttr("PrefixList", soapPrefix)
	}

	signedInfo.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", s.getSignatureAlgorithmURI())

	s.addReference(signedInfo, timestampID, "")
	s.addReference(signedInfo, bodyID, soapPrefix)

	sig.CreateElement("ds:SignatureValue").SetText("placeholder")

	keyInfo := sig.CreateElement("ds:KeyInfo")
	if err := s.buildSecurityTokenReference(keyInfo, bstID); err != nil {
		return nil, fmt.Errorf("failed to build security token reference: %w", err)
	}

	xmlStr, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}

	signer, err := signedxml.NewSigner(xmlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	signer.SetReferenceIDAttribute("wsu:Id")

	signedXML, err := signer.Sign(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to sign: %w", errs.ErrSigningConfig, err)
	}

	return []byte(signedXML), nil
}

// VerifyEnvelope verifies the signature of an envelope produced by SignEnvelope
func (s *RSASigner) VerifyEnvelope(envelopeXML []byte) error {
	validator, err := signedxml.NewValidator(string(envelopeXML))
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	validator.Certificates = append(validator.Certificates, *s.cert)
	validator.SetReferenceIDAttribute("wsu:Id")

	if _, err := validator.ValidateReferences(); err != nil {
		return fmt.Errorf("signature validation failed: %w", err)
	}

	return nil
}

func (s *RSASigner) ensureNamespaces(root *etree.Element) {
	if root.SelectAttr("xmlns:wsu") == nil {
		root.CreateAttr("xmlns:wsu", NSSecurityUtil)
	}
	if root.SelectAttr("xmlns:wsse") == nil {
		root.CreateAttr("xmlns:wsse", NSSecurityExt)
	}
}

func (s *RSASigner) getOrCreateID(elem *etree.Element, prefix string) string {
	id := elem.SelectAttrValue("wsu:Id", "")
	if id == "" {
		id = generateID(prefix)
		elem.CreateAttr("wsu:Id", id)
	}
	return id
}

func (s *RSASigner) addReference(signedInfo *etree.Element, id string, prefixList string) {
	// Digests are computed by signedxml during Sign()
	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "#"+id)

	transform := ref.CreateElement("ds:Transforms").CreateElement("ds:Transform")
	transform.CreateAttr("Algorithm", AlgorithmC14N)
	if prefixList != "" {
		inclNs := transform.CreateElement("ec:InclusiveNamespaces")
		inclNs.CreateAttr("xmlns:ec", AlgorithmC14N)
		inclNs.CreateAttr("PrefixList", prefixList)
	}

	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", s.getDigestAlgorithmURI())
	ref.CreateElement("ds:DigestValue").SetText("placeholder")
}

func (s *RSASigner) buildSecurityTokenReference(parent *etree.Element, bstID string) error {
	secTokenRef := parent.CreateElement("wsse:SecurityTokenReference")

	switch s.tokenReference {
	case TokenRefBinarySecurityToken:
		reference := secTokenRef.CreateElement("wsse:Reference")
		reference.CreateAttr("URI", "#"+bstID)
		reference.CreateAttr("ValueType", valueTypeX509v3)

	case TokenRefIssuerSerial:
		x509Data := secTokenRef.CreateElement("ds:X509Data")
		issuerSerial := x509Data.CreateElement("ds:X509IssuerSerial")
		issuerSerial.CreateElement("ds:X509IssuerName").SetText(s.cert.Issuer.String())
		issuerSerial.CreateElement("ds:X509SerialNumber").SetText(s.cert.SerialNumber.String())
		x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(s.cert.Raw))

	case TokenRefKeyIdentifier:
		keyID := secTokenRef.CreateElement("wsse:KeyIdentifier")
		keyID.CreateAttr("ValueType", valueTypeSKI)
		keyID.CreateAttr("EncodingType", encodingBase64)

		var skiBytes []byte
		for _, ext := range s.cert.Extensions {
			if ext.Id.Equal(oidSubjectKeyIdentifier) {
				if len(ext.Value) > 2 {
					skiBytes = ext.Value[2:]
				}
				break
			}
		}
		if len(skiBytes) == 0 {
			pubKeyBytes, err := x509.MarshalPKIXPublicKey(s.publicKey)
			if err != nil {
				return fmt.Errorf("failed to marshal public key: %w", err)
			}
			hash := sha256.Sum256(pubKeyBytes)
			skiBytes = hash[:20]
		}
		keyID.SetText(base64.StdEncoding.EncodeToString(skiBytes))

	case TokenRefThumbprint:
		keyID := secTokenRef.CreateElement("wsse:KeyIdentifier")
		keyID.CreateAttr("ValueType", valueTypeThumbprint)
		keyID.CreateAttr("EncodingType", encodingBase64)
		thumbprint := sha1.Sum(s.cert.Raw)
		keyID.SetText(base64.StdEncoding.EncodeToString(thumbprint[:]))

	default:
		return fmt.Errorf("unsupported token reference method: %s", s.tokenReference)
	}

	return nil
}

func (s *RSASigner) getSignatureAlgorithmURI() string {
	switch s.hashAlgo {
	case crypto.SHA1:
		return AlgorithmRSASHA1
	case crypto.SHA384:
		return AlgorithmRSASHA384
	case crypto.SHA512:
		return AlgorithmRSASHA512
	default:
		return AlgorithmRSASHA256
	}
}

func (s *RSASigner) getDigestAlgorithmURI() string {
	switch s.digestHashAlgo {
	case crypto.SHA1:
		return AlgorithmSHA1
	case crypto.SHA384:
		return AlgorithmSHA384
	case crypto.SHA512:
		return AlgorithmSHA512
	default:
		return AlgorithmSHA256
	}
}

// findChild returns the first child element with the given local name
func findChild(parent *etree.Element, local string) *etree.Element {
	for _, child := range parent.ChildElements() {
		if child.Tag == local {
			return child
		}
	}
	return nil
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + ":" + local
}
