// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package soap builds and reads the SOAP 1.1 envelopes exchanged with the
eSocial web services.

Requests are document/literal: the operation element carries a single
parameter element, which in turn carries the eSocial document.

	envelope, err := soap.WrapXML(ns, "EnviarLoteEventos", "loteEventos", batchXML)

Responses are inspected with ParseFault, which returns a *Fault when the
Body carries a soapenv:Fault, and Payload, which returns the first element
of the Body. A *Fault matches errs.ErrRemoteService under errors.Is.
*/
package soap
