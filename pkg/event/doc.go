// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package event builds eSocial event documents and validates XML against the
published XML Schemas.

# Building

S-1000 (employer information) documents are assembled as an element tree
and serialized, so every value is escaped:

	id, _ := event.NewEventID(event.InscriptionCNPJ, "12345678", time.Now(), 1)
	doc, err := event.BuildS1000(id, "12345678", "Empresa & Filhos Ltda")

# Validation

Validate checks a document against an XSD file with libxml2:

	ok, err := event.Validate(doc, "schemas/evtInfoEmpregador.xsd")

A document that parses but breaks the schema yields false and a nil error.
Malformed XML or a malformed schema yields an error matching errs.ErrParse;
a missing schema file yields an error matching errs.ErrIO. ValidateDetailed
returns the individual schema violations.

The schema is compiled on every call; callers validating many documents
against the same schema pay that cost each time.
*/
package event
