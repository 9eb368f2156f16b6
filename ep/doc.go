// Package ep contains the entity providers: streaming writers for entity
// links, links collections, service documents and error documents in the
// XML and JSON formats of OData.
//
// Providers write straight to the response sink. When a call returns an
// error the output written so far is incomplete and the caller must discard
// the response instead of sending it. Errors are *odataerr.SerializationError
// values whose Kind tells a sink failure (KindCommon) from bad row data.
package ep
