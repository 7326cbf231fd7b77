package domain

import (
	"strings"

	"go.trai.ch/zerr"
)

// KeySeparator separates the segments of an entry id.
const KeySeparator = ":"

// Key identifies a resource. Account and Region are optional; a key with a
// Region must also have an Account.
type Key struct {
	Type    string
	Account string
	Region  string
	Name    string
}

// String renders the key as type[:account[:region]]:name without validation.
func (k Key) String() string {
	parts := make([]string, 0, 4)
	parts = append(parts, k.Type)
	if k.Account != "" {
		parts = append(parts, k.Account)
		if k.Region != "" {
			parts = append(parts, k.Region)
		}
	}
	parts = append(parts, k.Name)
	return strings.Join(parts, KeySeparator)
}

// ID validates the key and renders it.
func (k Key) ID() (string, error) {
	if k.Region != "" && k.Account == "" {
		return "", zerr.With(zerr.Wrap(ErrMalformedKey, "region without account"), "key", k.String())
	}
	for _, seg := range []struct {
		field, value string
		required     bool
	}{
		{"type", k.Type, true},
		{"account", k.Account, false},
		{"region", k.Region, false},
		{"name", k.Name, true},
	} {
		if seg.required && seg.value == "" {
			return "", zerr.With(zerr.Wrap(ErrMalformedKey, "empty "+seg.field+" segment"), "key", k.String())
		}
		if strings.Contains(seg.value, KeySeparator) {
			return "", zerr.With(zerr.Wrap(ErrMalformedKey, seg.field+" segment contains separator"), "key", k.String())
		}
	}
	return k.String(), nil
}

// ParseKey splits an id into its segments.
func ParseKey(id string) (Key, error) {
	parts := strings.Split(id, KeySeparator)
	for _, p := range parts {
		if p == "" {
			return Key{}, zerr.With(zerr.Wrap(ErrMalformedKey, "empty segment"), "key", id)
		}
	}
	switch len(parts) {
	case 2:
		return Key{Type: parts[0], Name: parts[1]}, nil
	case 3:
		return Key{Type: parts[0], Account: parts[1], Name: parts[2]}, nil
	case 4:
		return Key{Type: parts[0], Account: parts[1], Region: parts[2], Name: parts[3]}, nil
	default:
		return Key{}, zerr.With(zerr.Wrap(ErrMalformedKey, "unexpected segment count"), "key", id)
	}
}

// TypeOf returns the type segment of an id.
func TypeOf(id string) string {
	t, _, _ := strings.Cut(id, KeySeparator)
	return t
}

// Attributes returns the self-descriptive attributes of the key.
func (k Key) Attributes() Attributes {
	attrs := Attributes{"name": String(k.Name)}
	if k.Account != "" {
		attrs["account"] = String(k.Account)
	}
	if k.Region != "" {
		attrs["region"] = String(k.Region)
	}
	return attrs
}
