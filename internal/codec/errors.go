package codec

import "errors"

var (
	// ErrMalformedDocument is returned when a document does not have the
	// expected shape
	ErrMalformedDocument = errors.New("malformed document")

	// ErrUnknownProperty is returned when a record names a property its
	// class does not declare
	ErrUnknownProperty = errors.New("unknown property")
)
