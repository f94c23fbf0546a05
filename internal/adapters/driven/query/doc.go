// Package query translates free-text search input into domain filters.
//
// Supported syntax:
//
//	foo bar            all terms must match
//	"big deal"         phrase
//	-foo               exclusion
//	from:alice         first participant
//	to:bob             any other participant
//	subject:invoice    subject only
//	in:work            restrict to an account
//	is:unread, is:read
//
// Field operators accept a leading "-" to negate them. Anything else of
// the form key:value is rejected so the caller can fall back to a plain
// text match.
package query
