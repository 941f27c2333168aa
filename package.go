package opc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
)

// Package is an OPC package: a part table, the content type rules and the
// package relationships, optionally backed by a source archive.
//
// A Package is not safe for concurrent use.
type Package struct {
	access Access
	limits Limits
	log    *slog.Logger
	save   []SaveOption

	parts    map[PartName]*Part
	order    []PartName
	types    *ContentTypeManager
	rootRels *relationshipCollection

	src    *archiveReader
	origin origin
	target saveTarget

	dirty  bool
	closed bool
}

// Create returns an empty read-write package. The rels and xml extensions
// have default content types and the package relationships part exists.
func Create(opts ...Option) *Package {
	cfg := newConfig(opts)
	p := newPackage(ReadWrite, cfg)
	p.types.seedDefaults()
	p.registerRelationshipPart(packageRoot)
	p.dirty = true
	p.log.Debug("opc: created package")
	return p
}

func newPackage(access Access, cfg config) *Package {
	return &Package{
		access:   access,
		limits:   cfg.limits,
		log:      cfg.logger,
		save:     cfg.save,
		parts:    make(map[PartName]*Part),
		types:    newContentTypeManager(),
		rootRels: newRelationshipCollection(packageRoot),
		target:   cfg.target,
	}
}

func (p *Package) Access() Access { return p.access }

// Limits returns the limits this package inflates entries under.
func (p *Package) Limits() Limits { return p.limits }

// Dirty reports whether the package changed since it was opened.
func (p *Package) Dirty() bool { return p.dirty }

func (p *Package) checkOpen() error {
	if p.closed {
		return ErrPackageClosed
	}
	return nil
}

func (p *Package) checkWritable() error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if p.access == ReadOnly {
		return fmt.Errorf("%w: package is read-only", ErrInvalidOperation)
	}
	return nil
}

// contentTypeManager exposes the content type rules to in-package tests.
func (p *Package) contentTypeManager() *ContentTypeManager { return p.types }

func (p *Package) relationshipsOf(source PartName) *relationshipCollection {
	if source == packageRoot {
		return p.rootRels
	}
	if part, ok := p.parts[source]; ok && part.rels != nil {
		return part.rels
	}
	return newRelationshipCollection(source)
}

func (p *Package) addPart(part *Part) {
	p.parts[part.name] = part
	p.order = append(p.order, part.name)
}

func (p *Package) removePart(name PartName) {
	part, ok := p.parts[name]
	if !ok {
		return
	}
	part.deleted = true
	delete(p.parts, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i:i], p.order[i+1:]...)
			break
		}
	}
	p.types.RemoveOverride(name)
}

// registerRelationshipPart puts the generated relationship part of source
// into the table, replacing any stale entry of the same name.
func (p *Package) registerRelationshipPart(source PartName) {
	name := RelationshipPartName(source)
	if part, ok := p.parts[name]; ok {
		if part.generated {
			return
		}
		p.removePart(name)
	}
	p.addPart(&Part{pkg: p, name: name, generated: true, source: source})
}

// syncRelationshipPart keeps a part's relationship part present exactly
// while the part has relationships. The package part always stays.
func (p *Package) syncRelationshipPart(source PartName) {
	if source == packageRoot {
		return
	}
	if p.relationshipsOf(source).len() > 0 {
		p.registerRelationshipPart(source)
		return
	}
	if part, ok := p.parts[RelationshipPartName(source)]; ok && part.generated {
		p.removePart(part.name)
	}
}

// CreatePart adds an empty part. An override rule is registered unless the
// default for the extension already yields contentType.
func (p *Package) CreatePart(name PartName, contentType string) (*Part, error) {
	if err := p.checkWritable(); err != nil {
		return nil, err
	}
	name, err := NewPartName(string(name))
	if err != nil {
		return nil, err
	}
	if err := validateContentType(contentType); err != nil {
		return nil, err
	}
	if _, ok := p.parts[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrPartAlreadyExists, name)
	}
	if name.IsRelationshipPart() {
		return nil, fmt.Errorf("%w: relationship parts are managed by the package", ErrInvalidOperation)
	}
	part := &Part{pkg: p, name: name, data: []byte{}, rels: newRelationshipCollection(name)}
	p.addPart(part)
	p.types.register(name, contentType)
	p.dirty = true
	return part, nil
}

// Part returns the part called name. name is normalized first, so any
// spelling of an equivalent part name finds the same part.
func (p *Package) Part(name PartName) (*Part, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	return p.lookup(name)
}

func (p *Package) lookup(name PartName) (*Part, error) {
	norm, err := NewPartName(string(name))
	if err != nil {
		return nil, err
	}
	part, ok := p.parts[norm]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPartNotFound, norm)
	}
	return part, nil
}

func (p *Package) ContainsPart(name PartName) bool {
	if p.closed {
		return false
	}
	_, err := p.lookup(name)
	return err == nil
}

// Parts returns every part, relationship parts included, in table order.
func (p *Package) Parts() ([]*Part, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	out := make([]*Part, 0, len(p.order))
	for _, n := range p.order {
		out = append(out, p.parts[n])
	}
	return out, nil
}

// PartsByName returns the parts whose name matches re, in table order.
func (p *Package) PartsByName(re *regexp.Regexp) ([]*Part, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	var out []*Part
	for _, n := range p.order {
		if re.MatchString(string(n)) {
			out = append(out, p.parts[n])
		}
	}
	return out, nil
}

// PartByRelationship returns the part an internal relationship points at.
func (p *Package) PartByRelationship(rel *Relationship) (*Part, error) {
	name, err := rel.ResolveTarget()
	if err != nil {
		return nil, err
	}
	return p.Part(name)
}

// CorePart returns the target of the first core-document relationship.
func (p *Package) CorePart() (*Part, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	rels := p.rootRels.byType(RelationshipTypeCoreDocument)
	if len(rels) == 0 {
		return nil, fmt.Errorf("%w: no core document relationship", ErrRelationshipNotFound)
	}
	return p.PartByRelationship(rels[0])
}

// DeletePart removes a part, its override rule and its relationship part.
// Relationships pointing at it are left dangling. Deleting a relationship
// part clears the relationships of its source; the package relationship
// part itself always remains.
func (p *Package) DeletePart(name PartName) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	part, err := p.lookup(name)
	if err != nil {
		return err
	}
	p.deletePart(part)
	p.dirty = true
	return nil
}

func (p *Package) deletePart(part *Part) {
	if part.generated {
		p.relationshipsOf(part.source).clear()
		if part.source != packageRoot {
			p.removePart(part.name)
		}
		return
	}
	p.removePart(part.name)
	if rp, ok := p.parts[RelationshipPartName(part.name)]; ok && rp.generated {
		p.removePart(rp.name)
	}
}

// DeletePartRecursive removes name and every part reachable from it over
// internal relationships. The graph may contain cycles; each part is
// removed once and external targets are never followed.
func (p *Package) DeletePartRecursive(name PartName) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	root, err := p.lookup(name)
	if err != nil {
		return err
	}
	visited := map[PartName]bool{root.name: true}
	queue := []PartName{root.name}
	var doomed []*Part
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		part, ok := p.parts[n]
		if !ok {
			continue
		}
		doomed = append(doomed, part)
		if part.rels == nil {
			continue
		}
		for _, r := range part.rels.rels {
			if r.mode == External {
				continue
			}
			t, err := r.ResolveTarget()
			if err != nil || visited[t] {
				continue
			}
			visited[t] = true
			queue = append(queue, t)
		}
	}
	for _, part := range doomed {
		if !part.deleted {
			p.deletePart(part)
		}
	}
	p.dirty = true
	p.log.Debug("opc: deleted parts", "root", root.name, "count", len(doomed))
	return nil
}

// AddRelationship adds a package relationship.
func (p *Package) AddRelationship(target string, mode TargetMode, relType, id string) (*Relationship, error) {
	if err := p.checkWritable(); err != nil {
		return nil, err
	}
	r, err := p.rootRels.add(target, mode, relType, id)
	if err != nil {
		return nil, err
	}
	p.dirty = true
	return r, nil
}

func (p *Package) RemoveRelationship(id string) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	if err := p.rootRels.remove(id); err != nil {
		return err
	}
	p.dirty = true
	return nil
}

// Relationships returns the package relationships in insertion order.
func (p *Package) Relationships() ([]*Relationship, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	return p.rootRels.all(), nil
}

func (p *Package) RelationshipsByType(relType string) ([]*Relationship, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	return p.rootRels.byType(relType), nil
}

func (p *Package) Relationship(id string) (*Relationship, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	return p.rootRels.get(id)
}

// ReplaceContentType rewrites every rule of type oldType to newType and
// reports whether any rule changed.
func (p *Package) ReplaceContentType(oldType, newType string) (bool, error) {
	if err := p.checkWritable(); err != nil {
		return false, err
	}
	if err := validateContentType(newType); err != nil {
		return false, err
	}
	if !p.types.ReplaceContentType(oldType, newType) {
		return false, nil
	}
	p.dirty = true
	return true, nil
}

// Revert discards every change, releases the source and closes the
// package without writing anything.
func (p *Package) Revert() error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	err := p.release()
	p.discard()
	p.log.Debug("opc: reverted package")
	return err
}

// Close saves pending changes when the package is read-write, dirty and
// has a save target, then releases the source. Otherwise it behaves like
// Revert. A writer target that is the source itself fails with
// ErrInvalidOperation and nothing is written. The package is closed
// afterwards even when saving fails.
func (p *Package) Close() error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if p.access != ReadWrite || !p.dirty || !p.target.known() {
		return p.Revert()
	}
	err := p.saveToTarget()
	err = errors.Join(err, p.release())
	p.discard()
	p.log.Debug("opc: closed package", "saved", err == nil)
	return err
}

func (p *Package) discard() {
	for _, part := range p.parts {
		part.deleted = true
	}
	p.parts = nil
	p.order = nil
	p.src = nil
	p.closed = true
}

func (p *Package) release() error {
	c := p.origin.closer
	p.origin.closer = nil
	if c == nil {
		return nil
	}
	return c.Close()
}

var _ io.Closer = (*Package)(nil)
