package opc

import (
	"fmt"
	"sort"
	"strings"
)

// ContentTypeManager resolves the content type of a part from Default
// rules keyed by extension and Override rules keyed by part name, and owns
// the serialized [Content_Types].xml.
type ContentTypeManager struct {
	defaults  map[string]string
	overrides map[PartName]string
}

func newContentTypeManager() *ContentTypeManager {
	return &ContentTypeManager{
		defaults:  make(map[string]string),
		overrides: make(map[PartName]string),
	}
}

// seedDefaults registers the rules every new package starts with.
func (m *ContentTypeManager) seedDefaults() {
	m.defaults[relationshipsExt] = ContentTypeRelationships
	m.defaults["xml"] = ContentTypeXML
}

// AddDefault maps ext, matched case-insensitively, to contentType.
func (m *ContentTypeManager) AddDefault(ext, contentType string) {
	m.defaults[strings.ToLower(ext)] = contentType
}

// AddOverride assigns contentType to exactly the part name.
func (m *ContentTypeManager) AddOverride(name PartName, contentType string) {
	m.overrides[name] = contentType
}

// RemoveOverride drops the override for name, if any.
func (m *ContentTypeManager) RemoveOverride(name PartName) {
	delete(m.overrides, name)
}

// HasDefault reports whether a Default rule exists for ext.
func (m *ContentTypeManager) HasDefault(ext string) bool {
	_, ok := m.defaults[strings.ToLower(ext)]
	return ok
}

// ContentType returns the content type of name: the override if present,
// otherwise the default for its lower-cased extension.
func (m *ContentTypeManager) ContentType(name PartName) (string, bool) {
	if ct, ok := m.overrides[name]; ok {
		return ct, true
	}
	ct, ok := m.defaults[strings.ToLower(name.Extension())]
	return ct, ok
}

// IsRegistered reports whether any rule maps to contentType.
func (m *ContentTypeManager) IsRegistered(contentType string) bool {
	for _, ct := range m.defaults {
		if ct == contentType {
			return true
		}
	}
	for _, ct := range m.overrides {
		if ct == contentType {
			return true
		}
	}
	return false
}

// ReplaceContentType rewrites every rule currently equal to oldType and
// reports whether any rule changed.
func (m *ContentTypeManager) ReplaceContentType(oldType, newType string) bool {
	changed := false
	for ext, ct := range m.defaults {
		if ct == oldType {
			m.defaults[ext] = newType
			changed = true
		}
	}
	for name, ct := range m.overrides {
		if ct == oldType {
			m.overrides[name] = newType
			changed = true
		}
	}
	return changed
}

// register records contentType for a new part, adding an override unless
// the extension default already yields the same type.
func (m *ContentTypeManager) register(name PartName, contentType string) {
	if ct, ok := m.defaults[strings.ToLower(name.Extension())]; ok && ct == contentType {
		return
	}
	m.overrides[name] = contentType
}

func (m *ContentTypeManager) clone() *ContentTypeManager {
	c := newContentTypeManager()
	for ext, ct := range m.defaults {
		c.defaults[ext] = ct
	}
	for name, ct := range m.overrides {
		c.overrides[name] = ct
	}
	return c
}

// marshal renders [Content_Types].xml with defaults sorted by extension and
// overrides sorted by part name.
func (m *ContentTypeManager) marshal() ([]byte, error) {
	doc := typesXML{
		Defaults:  make([]defaultXML, 0, len(m.defaults)),
		Overrides: make([]overrideXML, 0, len(m.overrides)),
	}
	for ext, ct := range m.defaults {
		doc.Defaults = append(doc.Defaults, defaultXML{Extension: ext, ContentType: ct})
	}
	sort.Slice(doc.Defaults, func(i, j int) bool { return doc.Defaults[i].Extension < doc.Defaults[j].Extension })
	for name, ct := range m.overrides {
		doc.Overrides = append(doc.Overrides, overrideXML{PartName: string(name), ContentType: ct})
	}
	sort.Slice(doc.Overrides, func(i, j int) bool { return doc.Overrides[i].PartName < doc.Overrides[j].PartName })
	return marshalXML(doc)
}

// parseContentTypes builds a manager from a [Content_Types].xml payload.
func parseContentTypes(data []byte) (*ContentTypeManager, error) {
	var doc typesXML
	if err := unmarshalXML(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContentTypes, err)
	}
	if len(doc.Unknown) > 0 {
		return nil, fmt.Errorf("%w: unexpected element <%s>", ErrMalformedContentTypes, doc.Unknown[0].XMLName.Local)
	}
	m := newContentTypeManager()
	for _, d := range doc.Defaults {
		if err := validateExtension(d.Extension); err != nil {
			return nil, fmt.Errorf("%w: Default: %v", ErrMalformedContentTypes, err)
		}
		if err := validateContentType(d.ContentType); err != nil {
			return nil, fmt.Errorf("%w: Default %q: %v", ErrMalformedContentTypes, d.Extension, err)
		}
		m.AddDefault(d.Extension, d.ContentType)
	}
	for _, o := range doc.Overrides {
		name, err := NewPartName(o.PartName)
		if err != nil {
			return nil, fmt.Errorf("%w: Override: %v", ErrMalformedContentTypes, err)
		}
		if err := validateContentType(o.ContentType); err != nil {
			return nil, fmt.Errorf("%w: Override %s: %v", ErrMalformedContentTypes, name, err)
		}
		m.AddOverride(name, o.ContentType)
	}
	return m, nil
}
