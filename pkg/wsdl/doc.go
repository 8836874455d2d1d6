// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package wsdl reads the parts of a WSDL 1.1 service description needed to
call an operation over SOAP: the target namespace, the SOAPAction of each
bound operation and the endpoint address of the port that exposes it.

Message and type definitions are not interpreted; eSocial request bodies
are built from the published event schemas instead.

	defs, err := wsdl.Parse(data)
	op, ok := defs.Operation("EnviarLoteEventos")

When a service exposes both SOAP 1.1 and SOAP 1.2 bindings, the SOAP 1.1
binding is used.
*/
package wsdl
