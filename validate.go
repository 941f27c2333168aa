package opc

import (
	"fmt"
	"mime"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"
)

func validateContentType(ct string) error {
	if strings.TrimSpace(ct) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidContentType)
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidContentType, ct, err)
	}
	if !strings.Contains(mt, "/") {
		return fmt.Errorf("%w: %q has no subtype", ErrInvalidContentType, ct)
	}
	return nil
}

// validateExtension checks a Default rule extension: non-empty, no dot,
// no path separator.
func validateExtension(ext string) error {
	if ext == "" {
		return fmt.Errorf("extension is empty")
	}
	if strings.ContainsAny(ext, "./\\") {
		return fmt.Errorf("extension %q contains a separator", ext)
	}
	return nil
}

// validateRelationshipID checks that id is an xsd:ID (an NCName).
func validateRelationshipID(id string) error {
	if id == "" {
		return fmt.Errorf("relationship id is empty")
	}
	for i, r := range id {
		switch {
		case r == utf8.RuneError:
			return fmt.Errorf("relationship id %q is not valid UTF-8", id)
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return fmt.Errorf("relationship id %q is not an NCName", id)
		}
	}
	return nil
}

func validateRelationshipType(t string) error {
	if strings.TrimSpace(t) == "" {
		return fmt.Errorf("relationship type is empty")
	}
	return nil
}

func parseTargetMode(s string) (TargetMode, error) {
	switch s {
	case "", "Internal":
		return Internal, nil
	case "External":
		return External, nil
	}
	return 0, fmt.Errorf("unknown TargetMode %q", s)
}

// validateTarget checks a relationship target. Internal targets must resolve
// to a part name unless they only carry a fragment; they may not address a
// relationship part. External targets only need to be URI references.
func validateTarget(source PartName, target string, mode TargetMode) error {
	switch mode {
	case External:
		if _, err := url.Parse(target); err != nil {
			return fmt.Errorf("%w: external target %q: %v", ErrInvalidOperation, target, err)
		}
		return nil
	case Internal:
		if strings.HasPrefix(target, "#") {
			return nil
		}
		name, err := ResolvePartName(source, target)
		if err != nil {
			return err
		}
		if name.IsRelationshipPart() {
			return fmt.Errorf("%w: %s is a relationship part and cannot be a target", ErrInvalidOperation, name)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown target mode %d", ErrInvalidOperation, mode)
}
