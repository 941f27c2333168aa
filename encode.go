package opc

import (
	"fmt"
	"io"
	"sort"
)

// Save writes the whole package to w as a fresh ZIP archive.
//
// [Content_Types].xml and every relationship part are regenerated from the
// in-memory model. Entries are written in a fixed order:
//  1. [Content_Types].xml
//  2. _rels/.rels
//  3. every other part by name, each followed by its relationship part
//
// Parts still backed by the source archive and never written are copied
// without inflating them, so their checksums and the package limits are
// not checked again: a corrupt source entry is carried over as is.
//
// Save fails with ErrInvalidOperation when w is the source the package is
// reading from, or when the package is read-only; in both cases nothing is
// written and the package is unchanged.
func (p *Package) Save(w io.Writer, opts ...SaveOption) error {
	if err := p.checkWritable(); err != nil {
		return err
	}
	if p.isSource(w) {
		return fmt.Errorf("%w: cannot save over the open source; save elsewhere or close first", ErrInvalidOperation)
	}
	return p.saveTo(w, opts)
}

func (p *Package) saveTo(w io.Writer, opts []SaveOption) error {
	cfg := newSaveConfig(p.save, opts)
	if err := validCompression(cfg.compression); err != nil {
		return err
	}
	types := p.types.clone()
	if !types.HasDefault(relationshipsExt) {
		types.AddDefault(relationshipsExt, ContentTypeRelationships)
	}
	parts := p.saveOrder()
	for _, part := range parts {
		if _, ok := types.ContentType(part.name); !ok {
			return fmt.Errorf("%w: part %s has no content type", ErrInvalidContentType, part.name)
		}
	}
	typesXML, err := types.marshal()
	if err != nil {
		return err
	}

	aw := newArchiveWriter(w, cfg)
	if err := aw.write(ContentTypesItemName, typesXML); err != nil {
		_ = aw.close()
		return err
	}
	for _, part := range parts {
		if err := p.writePart(aw, part); err != nil {
			_ = aw.close()
			return fmt.Errorf("%s: %w", part.name, err)
		}
	}
	if err := aw.close(); err != nil {
		return err
	}
	p.log.Debug("opc: saved package", "parts", len(parts), "compression", compressionName(cfg.compression))
	return nil
}

// saveOrder lists the parts in archive order: the package relationships,
// then the remaining parts sorted by name with each relationship part
// directly after its source.
func (p *Package) saveOrder() []*Part {
	var names []PartName
	for _, n := range p.order {
		if part := p.parts[n]; !part.generated {
			names = append(names, n)
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i].Less(names[j]) })

	out := make([]*Part, 0, len(p.order))
	out = append(out, p.parts[RootRelationshipsPartName])
	for _, n := range names {
		out = append(out, p.parts[n])
		if rp, ok := p.parts[RelationshipPartName(n)]; ok && rp.generated {
			out = append(out, rp)
		}
	}
	return out
}

func (p *Package) writePart(aw *archiveWriter, part *Part) error {
	item := part.name.zipItemName()
	switch {
	case part.generated:
		b, err := p.relationshipsOf(part.source).marshal()
		if err != nil {
			return err
		}
		return aw.write(item, b)
	case part.file != nil:
		return aw.copyRaw(item, part.file)
	}
	return aw.write(item, part.data)
}
