// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package esocial is a client for the eSocial event batch web services.

A Client authenticates twice with the employer's ICP-Brasil credential: the
PKCS#12 bundle is presented as the TLS client certificate, and the PEM pair
derived from it signs every SOAP envelope with WS-Security. The server
certificate must chain to the configured trust bundle; the platform trust
store is not consulted.

# Creating a Client

	client, err := esocial.NewClient(ctx, &esocial.ClientConfig{
	    WSDLURL:         esocial.Restricted.Endpoints().SendWSDL,
	    QueryWSDLURL:    esocial.Restricted.Endpoints().QueryWSDL,
	    PFXPath:         "empresa.pfx",
	    PFXPassword:     password,
	    CertPEMPath:     "cert.pem",
	    KeyPEMPath:      "key.pem",
	    TrustBundlePath: "ca_bundle_icp.pem",
	})

The WSDL documents are fetched over the authenticated channel and bind the
two operations used here, EnviarLoteEventos and ConsultarLoteEventos.

# Operations

	resp, err := client.SendBatch(ctx, batchXML)
	fmt.Println(resp.Status.Code, resp.Protocol)

	resp, err = client.QueryProtocol(ctx, resp.Protocol)
	if resp.IsPending() {
	    // ask again later
	}

Calls are synchronous and never retried. Response.Raw holds the response
exactly as received.

# Errors

Every failure matches one of the exported sentinels under errors.Is:
ErrDecryption, ErrIO, ErrConnection, ErrSigningConfig, ErrTLSHandshake,
ErrParse and ErrRemoteService. SOAP faults can also be inspected with
errors.As and a *soap.Fault target.
*/
package esocial
