package opc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// Part is a named, typed blob inside a package. Its content is either an
// entry of the source archive, read lazily, or a buffer owned by the part
// once it has been written. Relationship parts carry no content of their
// own: they render the relationships of their source on every read.
type Part struct {
	pkg  *Package
	name PartName

	file *zip.File
	data []byte

	// rels holds the relationships this part is the source of. It is nil
	// for relationship parts.
	rels *relationshipCollection
	// generated marks a relationship part rendered from source's
	// collection.
	generated bool
	source    PartName
	deleted   bool
}

func (p *Part) Name() PartName { return p.name }

// ContentType resolves the part's type through the content type rules.
func (p *Part) ContentType() string {
	ct, _ := p.pkg.types.ContentType(p.name)
	return ct
}

func (p *Part) IsRelationshipPart() bool { return p.name.IsRelationshipPart() }

// Size returns the uncompressed size of the content, or -1 for generated
// relationship parts whose size is only known once rendered.
func (p *Part) Size() int64 {
	switch {
	case p.generated:
		return -1
	case p.file != nil:
		return int64(p.file.UncompressedSize64)
	}
	return int64(len(p.data))
}

func (p *Part) usable() error {
	if err := p.pkg.checkOpen(); err != nil {
		return err
	}
	if p.deleted {
		return fmt.Errorf("%w: %s was deleted", ErrPartNotFound, p.name)
	}
	return nil
}

// Reader opens the part content. Archive-backed content is inflated under
// the package limits as it is read.
func (p *Part) Reader() (io.ReadCloser, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	switch {
	case p.generated:
		b, err := p.pkg.relationshipsOf(p.source).marshal()
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(b)), nil
	case p.file != nil:
		return p.pkg.src.open(p.file)
	}
	return io.NopCloser(bytes.NewReader(p.data)), nil
}

// Bytes reads the whole content.
func (p *Part) Bytes() ([]byte, error) {
	rc, err := p.Reader()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return readAll(rc)
}

// Writer returns a handle whose Close replaces the part content with
// everything written to it.
func (p *Part) Writer() (io.WriteCloser, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	if err := p.pkg.checkWritable(); err != nil {
		return nil, err
	}
	if p.IsRelationshipPart() {
		return nil, fmt.Errorf("%w: %s is a relationship part", ErrInvalidOperation, p.name)
	}
	return &partWriter{part: p}, nil
}

type partWriter struct {
	part   *Part
	buf    bytes.Buffer
	closed bool
}

func (w *partWriter) Write(b []byte) (int, error) {
	if w.closed {
		return 0, fmt.Errorf("%w: write to closed part writer", ErrInvalidOperation)
	}
	return w.buf.Write(b)
}

func (w *partWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.part.usable(); err != nil {
		return err
	}
	w.part.file = nil
	w.part.data = w.buf.Bytes()
	w.part.pkg.dirty = true
	return nil
}

// HasRelationships reports whether p is the source of any relationship.
// It is false once the part is deleted or its package closed.
func (p *Part) HasRelationships() bool {
	return p.rels != nil && p.usable() == nil && p.rels.len() > 0
}

// Relationships returns the relationships sourced at p in insertion order,
// or nil once the part is deleted or its package closed.
func (p *Part) Relationships() []*Relationship {
	if p.rels == nil || p.usable() != nil {
		return nil
	}
	return p.rels.all()
}

func (p *Part) RelationshipsByType(relType string) []*Relationship {
	if p.rels == nil || p.usable() != nil {
		return nil
	}
	return p.rels.byType(relType)
}

func (p *Part) Relationship(id string) (*Relationship, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	if p.rels == nil {
		return nil, fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	return p.rels.get(id)
}

// AddRelationship adds a relationship sourced at p. An empty id is
// generated. Relationship parts cannot be sources.
func (p *Part) AddRelationship(target string, mode TargetMode, relType, id string) (*Relationship, error) {
	if err := p.usable(); err != nil {
		return nil, err
	}
	if err := p.pkg.checkWritable(); err != nil {
		return nil, err
	}
	if p.rels == nil {
		return nil, fmt.Errorf("%w: relationship part %s cannot be a source", ErrInvalidOperation, p.name)
	}
	r, err := p.rels.add(target, mode, relType, id)
	if err != nil {
		return nil, err
	}
	p.pkg.syncRelationshipPart(p.name)
	p.pkg.dirty = true
	return r, nil
}

// RemoveRelationship removes a relationship by id. Targets are untouched.
func (p *Part) RemoveRelationship(id string) error {
	if err := p.usable(); err != nil {
		return err
	}
	if err := p.pkg.checkWritable(); err != nil {
		return err
	}
	if p.rels == nil {
		return fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	if err := p.rels.remove(id); err != nil {
		return err
	}
	p.pkg.syncRelationshipPart(p.name)
	p.pkg.dirty = true
	return nil
}
