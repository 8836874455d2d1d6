// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package goesocial is a client for the Brazilian eSocial labor-reporting web
services.

# Overview

go-esocial submits XML event batches to eSocial over SOAP 1.1, queries their
processing status, converts ICP-Brasil PKCS#12 (A1) credentials to PEM, and
builds and validates event documents against the published XML Schemas.

Each request is authenticated twice with the same employer credential:

  - Mutual TLS, presenting the PKCS#12 bundle as the client certificate
  - WS-Security, signing the SOAP Body and a Timestamp with the PEM pair
    derived from the bundle

# Specifications Implemented

  - SOAP 1.1: https://www.w3.org/TR/2000/NOTE-SOAP-20000508/
  - WSDL 1.1: https://www.w3.org/TR/wsdl
  - WS-Security 1.1.1 X.509 Token Profile: https://docs.oasis-open.org/wss/v1.1/
  - XML Signature Syntax and Processing: https://www.w3.org/TR/xmldsig-core1/
  - eSocial communication manual and event layouts: https://www.gov.br/esocial/

# Package Structure

	github.com/sirosfoundation/go-esocial/pkg/esocial     - Client, batch operations, responses
	github.com/sirosfoundation/go-esocial/pkg/certificate - PKCS#12 decoding, PEM conversion, key pairs
	github.com/sirosfoundation/go-esocial/pkg/event       - S-1000 builder and XSD validation
	github.com/sirosfoundation/go-esocial/pkg/export      - Flat record export to CSV
	github.com/sirosfoundation/go-esocial/pkg/security    - WS-Security envelope signing
	github.com/sirosfoundation/go-esocial/pkg/soap        - SOAP 1.1 envelopes and faults
	github.com/sirosfoundation/go-esocial/pkg/transport   - Mutual TLS HTTPS transport
	github.com/sirosfoundation/go-esocial/pkg/wsdl        - WSDL operation binding

# Quick Start

	import (
	    "github.com/sirosfoundation/go-esocial/pkg/certificate"
	    "github.com/sirosfoundation/go-esocial/pkg/esocial"
	    "github.com/sirosfoundation/go-esocial/pkg/event"
	)

	// Derive the signing pair once
	err := certificate.Convert("empresa.pfx", password, "cert.pem", "key.pem")

	// Build the client
	endpoints := esocial.Restricted.Endpoints()
	client, err := esocial.NewClient(ctx, &esocial.ClientConfig{
	    WSDLURL:         endpoints.SendWSDL,
	    QueryWSDLURL:    endpoints.QueryWSDL,
	    PFXPath:         "empresa.pfx",
	    PFXPassword:     password,
	    CertPEMPath:     "cert.pem",
	    KeyPEMPath:      "key.pem",
	    TrustBundlePath: "ca_bundle_icp.pem",
	})

	// Build, validate and send an event
	id, _ := event.NewEventID(event.InscriptionCNPJ, "12345678", time.Now(), 1)
	doc, _ := event.BuildS1000(id, "12345678", "Empresa Ltda")
	if ok, err := event.Validate(doc, "schemas/evtInfoEmpregador.xsd"); err != nil || !ok {
	    // reject locally
	}
	resp, err := client.SendBatch(ctx, doc)

	// Ask for the result
	status, err := client.QueryProtocol(ctx, resp.Protocol)

# Security Features

## Digital Signatures

  - RSA-SHA256 over the Body and a wsu:Timestamp
  - Exclusive XML Canonicalization with InclusiveNamespaces

## Certificate References

  - X509IssuerSerial: default, as expected by eSocial
  - SubjectKeyIdentifier: for X.509v3 certificates with SKI extension
  - BinarySecurityToken: embeds full certificate
  - ThumbprintSHA1: certificate fingerprint reference

## Trust

The server certificate is verified only against the configured trust bundle
(the ICP-Brasil chain); the platform trust store is never used.

# License

BSD-2-Clause License
*/
package goesocial
