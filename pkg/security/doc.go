// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package security implements WS-Security message signing for eSocial SOAP
requests.

eSocial authenticates the transmitter twice: at the transport level with a
TLS client certificate, and at the message level with an XML digital
signature carried in a wsse:Security header. This package covers the
second part.

# Digital Signatures

	pair, _ := certificate.LoadKeyPair("cert.pem", "key.pem")
	signer, err := security.NewSignerFromKeyPair(pair)
	signed, err := signer.SignEnvelope(envelope)

The signer adds to the SOAP 1.1 header:
  - a wsu:Timestamp valid for five minutes
  - a ds:Signature over the Timestamp and the Body
  - a token reference to the signing certificate

Signature features:
  - RSA-SHA256 signature and SHA-256 digests by default
  - Exclusive XML Canonicalization with InclusiveNamespaces
  - wsu:Id based references

XML signature computation is delegated to the signedxml package; envelope
manipulation uses etree.

# Certificate Reference Methods

	TokenRefIssuerSerial        - X509IssuerSerial plus the certificate (default)
	TokenRefBinarySecurityToken - embedded BinarySecurityToken
	TokenRefKeyIdentifier       - SubjectKeyIdentifier
	TokenRefThumbprint          - SHA-1 certificate thumbprint

# References

  - WS-Security 1.1.1: https://docs.oasis-open.org/wss/v1.1/
  - WS-Security X.509 Token Profile: https://docs.oasis-open.org/wss/v1.1/wss-v1.1-spec-os-x509TokenProfile.pdf
  - XML Signature: https://www.w3.org/TR/xmldsig-core1/
*/
package security
