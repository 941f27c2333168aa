// Package opc implements the Open Packaging Conventions (OPC) used by OOXML
// documents such as .docx, .xlsx and .pptx files.
//
// An OPC package is a ZIP archive whose entries ("parts") are addressed by
// normalized part names, typed by the rules in [Content_Types].xml and
// linked by relationships stored in *.rels parts. This package models that
// structure in memory and reads and writes it from and to ZIP archives.
//
// # Package Overview
//
// A package consists of:
//   - Parts, each with a [PartName], a content type and a byte payload
//   - Content type rules: defaults keyed by extension, overrides keyed by name
//   - Relationships from the package root or from a part to internal parts
//     or external URIs
//
// Only [Content_Types].xml and relationship parts are interpreted; every
// other payload is opaque bytes.
//
// # Basic Usage
//
// To create a package:
//
//	pkg := opc.Create()
//	part, _ := pkg.CreatePart(opc.MustPartName("/xl/workbook.xml"),
//		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml")
//	w, _ := part.Writer()
//	w.Write(workbookXML)
//	w.Close()
//	pkg.AddRelationship("/xl/workbook.xml", opc.Internal, opc.RelationshipTypeCoreDocument, "")
//	err := pkg.Save(out)
//
// To read one:
//
//	pkg, err := opc.OpenPath("book.xlsx", opc.ReadOnly)
//	defer pkg.Close()
//	core, err := pkg.CorePart()
//
// # Security Considerations
//
// Every archive entry is inflated through a reader that enforces [Limits]
// while it reads: an entry larger than MaxEntrySize, or one whose output
// outgrows its compressed input by more than 1/MinInflateRatio, fails with
// [ErrSecurityLimitExceeded]. The process-wide defaults are set with
// [SetDefaultLimits] and can be overridden per package with [WithLimits].
package opc
