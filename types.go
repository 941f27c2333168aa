package opc

import "fmt"

const (
	// ContentTypesItemName is the ZIP item holding the content type rules.
	ContentTypesItemName = "[Content_Types].xml"

	relationshipsDirName = "_rels"
	relationshipsExt     = "rels"
)

// Well-known content types.
const (
	ContentTypeRelationships  = "application/vnd.openxmlformats-package.relationships+xml"
	ContentTypeXML            = "application/xml"
	ContentTypeCoreProperties = "application/vnd.openxmlformats-package.core-properties+xml"
)

// Well-known relationship types.
const (
	RelationshipTypeCoreDocument       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelationshipTypeCoreProperties     = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"
	RelationshipTypeExtendedProperties = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties"
	RelationshipTypeThumbnail          = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"
	RelationshipTypeHyperlink          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
)

// TargetMode tells whether a relationship points inside the package.
type TargetMode uint8

const (
	Internal TargetMode = iota
	External
)

func (m TargetMode) String() string {
	switch m {
	case Internal:
		return "Internal"
	case External:
		return "External"
	}
	return fmt.Sprintf("TargetMode(%d)", uint8(m))
}

// Access is the mode a package was opened with.
type Access uint8

const (
	ReadWrite Access = iota
	ReadOnly
)

func (a Access) String() string {
	if a == ReadOnly {
		return "read-only"
	}
	return "read-write"
}

// Compression selects the ZIP method used for entries written by Save.
type Compression uint16

const (
	CompStore   Compression = 0
	CompDeflate Compression = 8
	CompZSTD    Compression = 93
)

func compressionName(c Compression) string {
	switch c {
	case CompStore:
		return "store"
	case CompDeflate:
		return "deflate"
	case CompZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}
