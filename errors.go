package opc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat           = errors.New("opc: invalid package format")
	ErrInvalidPartName         = errors.New("opc: invalid part name")
	ErrInvalidContentType      = errors.New("opc: invalid content type")
	ErrPartAlreadyExists       = errors.New("opc: part already exists")
	ErrPartNotFound            = errors.New("opc: part not found")
	ErrDuplicateRelationshipID = errors.New("opc: duplicate relationship id")
	ErrRelationshipNotFound    = errors.New("opc: relationship not found")
	ErrInvalidOperation        = errors.New("opc: invalid operation")
	ErrInvalidLimits           = errors.New("opc: invalid limits")
	ErrPackageClosed           = errors.New("opc: package closed")

	// ErrSecurityLimitExceeded aborts the whole open or read in progress.
	ErrSecurityLimitExceeded = errors.New("opc: zip bomb detected")
)

// Schema violations in the two fixed XML parts are format errors:
// errors.Is(err, ErrInvalidFormat) holds for both.
var (
	ErrMalformedContentTypes  = fmt.Errorf("%w: malformed %s", ErrInvalidFormat, ContentTypesItemName)
	ErrMalformedRelationships = fmt.Errorf("%w: malformed relationships part", ErrInvalidFormat)
)
