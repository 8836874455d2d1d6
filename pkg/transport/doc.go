// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package transport implements the mutually authenticated HTTPS transport used
to reach the eSocial web services.

The eSocial endpoints require TLS client authentication with an ICP-Brasil
certificate, and their server certificates are issued under the ICP-Brasil
hierarchy, which is not part of most platform trust stores. The client
therefore trusts only the pool it is given.

# Client Usage

	bundle, _ := certificate.LoadPKCS12("empresa.pfx", password)
	roots, _ := certificate.LoadCertPool("ca_bundle_icp.pem")

	client := transport.NewHTTPSClient(&transport.HTTPSConfig{
	    MinTLSVersion: transport.TLS12,
	    Certificates:  []tls.Certificate{bundle.TLSCertificate()},
	    RootCAs:       roots,
	})

	wsdl, err := client.Get(ctx, wsdlURL)
	resp, err := client.Post(ctx, endpoint, soapAction, envelope)

A nil RootCAs pool is replaced by an empty pool, so a missing trust bundle
fails closed instead of falling back to the system roots.

# Errors

Handshake failures (rejected client certificate, untrusted server
certificate, TLS alerts) match ErrTLSHandshake. Every other failure to
complete the exchange matches ErrConnection. A response with a non-2xx
status is not an error at this layer; SOAP faults travel with HTTP 500.

# References

  - eSocial communication manual (Manual de Orientação do Desenvolvedor)
  - TLS 1.2 RFC 5246: https://datatracker.ietf.org/doc/html/rfc5246
*/
package transport
