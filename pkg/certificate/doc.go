// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package certificate handles the ICP-Brasil client credential used to talk to
eSocial.

The same PKCS#12 (A1) bundle is used twice: once, as is, for TLS client
authentication, and once converted to a PEM certificate/key pair for
WS-Security message signing.

# Conversion

	err := certificate.Convert("empresa.pfx", password, "cert.pem", "key.pem")

The certificate file holds the leaf certificate followed by every chain
certificate found in the bundle, in the order they were decoded. The key
file holds the private key in the traditional, unencrypted OpenSSL format
(RSA PRIVATE KEY or EC PRIVATE KEY) and is written with mode 0600.

# Loading

	bundle, err := certificate.LoadPKCS12("empresa.pfx", password)
	tlsCert := bundle.TLSCertificate()

	pair, err := certificate.LoadKeyPair("cert.pem", "key.pem")

LoadKeyPair verifies that the key belongs to the leaf certificate, so a
mismatched pair is reported before any envelope is signed.

# Errors

Failures match the categories of the internal errs package: a bad password
or corrupt bundle matches ErrDecryption, unreadable or unwritable files
match ErrIO, and unusable PEM pairs match ErrSigningConfig.
*/
package certificate
