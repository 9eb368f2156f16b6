// Package contenttype implements media types and Accept header negotiation.
//
// A ContentType is an immutable value (type, subtype and ordered parameters).
// Match is the compatibility relation used for negotiation and follows HTTP
// media-range rules rather than structural equality:
//
//	*/*              matches everything, parameters included
//	aaa/*            matches aaa/bbb
//	aaa/bbb;x=y;a=b  matches aaa/bbb;a=b;x=y
//	aaa/*;x=y        does not match aaa/bbb;x=z
//
// Match is symmetric. A parameter key present on only one side does not block
// a match.
//
// # Thread Safety
//
// ContentType values and Negotiators are safe for concurrent use.
package contenttype
