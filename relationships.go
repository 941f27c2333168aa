package opc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Relationship is a typed, identified edge from a part (or the package
// root) to an internal part or an external URI.
type Relationship struct {
	id      string
	relType string
	target  string
	mode    TargetMode
	source  PartName
}

func (r *Relationship) ID() string             { return r.id }
func (r *Relationship) Type() string           { return r.relType }
func (r *Relationship) TargetMode() TargetMode { return r.mode }

// Target returns the target URI as it was supplied or read.
func (r *Relationship) Target() string { return r.target }

// SourceURI returns the name of the source part, or "/" for the package.
func (r *Relationship) SourceURI() string {
	if r.source == packageRoot {
		return "/"
	}
	return string(r.source)
}

// SourcePart returns the source part name; ok is false for package
// relationships.
func (r *Relationship) SourcePart() (name PartName, ok bool) {
	return r.source, r.source != packageRoot
}

// ResolveTarget resolves an internal target against the source. External
// targets are never resolved and yield ErrInvalidOperation.
func (r *Relationship) ResolveTarget() (PartName, error) {
	if r.mode == External {
		return "", fmt.Errorf("%w: relationship %s targets an external resource", ErrInvalidOperation, r.id)
	}
	if strings.HasPrefix(r.target, "#") {
		if r.source == packageRoot {
			return "", fmt.Errorf("%w: fragment target %q has no source part", ErrInvalidPartName, r.target)
		}
		return r.source, nil
	}
	return ResolvePartName(r.source, r.target)
}

// relationshipCollection is the ordered set of relationships owned by one
// source.
type relationshipCollection struct {
	source PartName
	rels   []*Relationship
	byID   map[string]*Relationship
	nextID int
}

func newRelationshipCollection(source PartName) *relationshipCollection {
	return &relationshipCollection{
		source: source,
		byID:   make(map[string]*Relationship),
		nextID: 1,
	}
}

func (c *relationshipCollection) len() int { return len(c.rels) }

// add appends a relationship. An empty id takes the next unused rIdN.
func (c *relationshipCollection) add(target string, mode TargetMode, relType, id string) (*Relationship, error) {
	if err := validateRelationshipType(relType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
	}
	if err := validateTarget(c.source, target, mode); err != nil {
		return nil, err
	}
	if id == "" {
		id = c.generateID()
	} else {
		if err := validateRelationshipID(id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOperation, err)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRelationshipID, id)
		}
	}
	r := &Relationship{id: id, relType: relType, target: target, mode: mode, source: c.source}
	c.rels = append(c.rels, r)
	c.byID[id] = r
	return r, nil
}

// generateID never hands out the same counter value twice, even after the
// relationship that used it was removed.
func (c *relationshipCollection) generateID() string {
	for {
		id := "rId" + strconv.Itoa(c.nextID)
		c.nextID++
		if _, used := c.byID[id]; !used {
			return id
		}
	}
}

func (c *relationshipCollection) remove(id string) error {
	if _, ok := c.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	delete(c.byID, id)
	for i, r := range c.rels {
		if r.id == id {
			c.rels = append(c.rels[:i:i], c.rels[i+1:]...)
			break
		}
	}
	return nil
}

func (c *relationshipCollection) clear() {
	c.rels = nil
	c.byID = make(map[string]*Relationship)
}

func (c *relationshipCollection) get(id string) (*Relationship, error) {
	r, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRelationshipNotFound, id)
	}
	return r, nil
}

func (c *relationshipCollection) all() []*Relationship {
	out := make([]*Relationship, len(c.rels))
	copy(out, c.rels)
	return out
}

func (c *relationshipCollection) byType(relType string) []*Relationship {
	var out []*Relationship
	for _, r := range c.rels {
		if r.relType == relType {
			out = append(out, r)
		}
	}
	return out
}

// marshal renders the collection as a relationships part. Absolute internal
// targets are written relative to the source directory.
func (c *relationshipCollection) marshal() ([]byte, error) {
	doc := relationshipsXML{Relationships: make([]relationshipXML, 0, len(c.rels))}
	for _, r := range c.rels {
		x := relationshipXML{ID: r.id, Type: r.relType, Target: r.target}
		if r.mode == External {
			x.TargetMode = External.String()
		} else if strings.HasPrefix(r.target, "/") {
			x.Target = c.relativeTarget(r.target)
		}
		doc.Relationships = append(doc.Relationships, x)
	}
	return marshalXML(doc)
}

func (c *relationshipCollection) relativeTarget(target string) string {
	name, err := ResolvePartName(c.source, target)
	if err != nil {
		return target
	}
	ref := relativeReference(c.source, name)
	if u, err := url.Parse(target); err == nil && u.Fragment != "" {
		ref += "#" + u.EscapedFragment()
	}
	return ref
}

// parseRelationships reads a relationships part whose relationships
// originate at source.
func parseRelationships(source PartName, data []byte) (*relationshipCollection, error) {
	var doc relationshipsXML
	if err := unmarshalXML(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRelationships, RelationshipPartName(source), err)
	}
	if len(doc.Unknown) > 0 {
		return nil, fmt.Errorf("%w: %s: unexpected element <%s>", ErrMalformedRelationships, RelationshipPartName(source), doc.Unknown[0].XMLName.Local)
	}
	c := newRelationshipCollection(source)
	for _, x := range doc.Relationships {
		mode, err := parseTargetMode(x.TargetMode)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRelationships, RelationshipPartName(source), err)
		}
		if x.ID == "" {
			return nil, fmt.Errorf("%w: %s: relationship without Id", ErrMalformedRelationships, RelationshipPartName(source))
		}
		if x.Target == "" && mode == Internal {
			return nil, fmt.Errorf("%w: %s: relationship %q has no target", ErrMalformedRelationships, RelationshipPartName(source), x.ID)
		}
		if _, err := c.add(x.Target, mode, x.Type, x.ID); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRelationships, RelationshipPartName(source), err)
		}
	}
	return c, nil
}
