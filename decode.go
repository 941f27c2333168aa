package opc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Open reads a package from the ZIP archive in r.
//
// The open sequence:
//  1. Reads the central directory
//  2. Parses [Content_Types].xml
//  3. Parses every relationship part whose source exists
//  4. Registers the remaining entries as lazily read parts
//
// Every entry read during Open is inflated under the package limits (see
// [WithLimits] and [SetDefaultLimits]); a violation fails the whole open
// with ErrSecurityLimitExceeded and no package is returned. A missing or
// malformed [Content_Types].xml, a malformed relationship part or a part
// without a content type fail with ErrInvalidFormat.
//
// The package reads from r until it is closed or reverted.
func Open(r io.ReaderAt, size int64, access Access, opts ...Option) (*Package, error) {
	cfg := newConfig(opts)
	if err := cfg.limits.Validate(); err != nil {
		return nil, err
	}
	ar, err := newArchiveReader(r, size, cfg.limits, cfg.logger)
	if err != nil {
		return nil, err
	}
	p := newPackage(access, cfg)
	p.src = ar
	p.origin.handle = r
	p.origin.info = statOf(r)
	if err := p.load(); err != nil {
		p.log.Debug("opc: open failed", "error", err)
		return nil, err
	}
	p.log.Debug("opc: opened package", "parts", len(p.order), "access", access.String())
	return p, nil
}

// OpenReader buffers all of r and opens the result.
func OpenReader(r io.Reader, access Access, opts ...Option) (*Package, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	p, err := Open(bytes.NewReader(data), int64(len(data)), access, opts...)
	if err != nil {
		return nil, err
	}
	p.origin.handle = r
	return p, nil
}

type archiveEntry struct {
	name PartName
	file *zip.File
}

func (p *Package) load() error {
	var (
		typesFile *zip.File
		entries   []archiveEntry
		seen      = make(map[PartName]bool)
	)
	for _, f := range p.src.files() {
		if isDirEntry(f) {
			continue
		}
		if strings.EqualFold(f.Name, ContentTypesItemName) {
			if typesFile != nil {
				return fmt.Errorf("%w: duplicate %s", ErrInvalidFormat, ContentTypesItemName)
			}
			typesFile = f
			continue
		}
		name, err := partNameFromZipItem(f.Name)
		if err != nil {
			return fmt.Errorf("%w: entry %q: %v", ErrInvalidFormat, f.Name, err)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate part %s", ErrInvalidFormat, name)
		}
		seen[name] = true
		entries = append(entries, archiveEntry{name: name, file: f})
	}
	if typesFile == nil {
		return fmt.Errorf("%w: missing %s", ErrInvalidFormat, ContentTypesItemName)
	}
	data, err := p.src.readAll(typesFile)
	if err != nil {
		return err
	}
	if p.types, err = parseContentTypes(data); err != nil {
		return err
	}

	// Relationship parts come next so every part is registered together
	// with its relationships.
	collections := make(map[PartName]*relationshipCollection)
	for _, e := range entries {
		src, ok := relationshipSource(e.name)
		if !ok || (src != packageRoot && !seen[src]) {
			continue
		}
		data, err := p.src.readAll(e.file)
		if err != nil {
			return err
		}
		c, err := parseRelationships(src, data)
		if err != nil {
			return err
		}
		collections[src] = c
	}
	if c, ok := collections[packageRoot]; ok {
		p.rootRels = c
	}
	p.registerRelationshipPart(packageRoot)

	for _, e := range entries {
		if src, ok := relationshipSource(e.name); ok {
			if _, managed := collections[src]; managed {
				if src != packageRoot && collections[src].len() > 0 {
					p.registerRelationshipPart(src)
				}
				continue
			}
		}
		if _, ok := p.types.ContentType(e.name); !ok {
			return fmt.Errorf("%w: part %s has no content type", ErrInvalidFormat, e.name)
		}
		part := &Part{pkg: p, name: e.name, file: e.file}
		if !e.name.IsRelationshipPart() {
			part.rels = collections[e.name]
			if part.rels == nil {
				part.rels = newRelationshipCollection(e.name)
			}
		}
		p.addPart(part)
	}
	return nil
}
