package provider

import (
	"maps"
	"slices"
	"strings"

	"github.com/casualjim/omnichat/messages"
)

// RoleTable maps canonical roles to a vendor's role tokens and back.
// Only the roles the vendor can represent are present.
type RoleTable struct {
	vendor   string
	toWire   map[messages.Role]string
	fromWire map[string]messages.Role
}

// NewRoleTable builds the bidirectional table from the forward mapping.
// The forward mapping must be injective.
func NewRoleTable(vendor string, roles map[messages.Role]string) RoleTable {
	t := RoleTable{
		vendor:   vendor,
		toWire:   make(map[messages.Role]string, len(roles)),
		fromWire: make(map[string]messages.Role, len(roles)),
	}
	for role, token := range roles {
		if _, dup := t.fromWire[token]; dup {
			panic("role table for " + vendor + " maps two roles to " + token)
		}
		t.toWire[role] = token
		t.fromWire[token] = role
	}
	return t
}

// ToWire returns the vendor token for r, or a ValidationError when the vendor
// has no such role.
func (t RoleTable) ToWire(r messages.Role) (string, error) {
	token, ok := t.toWire[r]
	if !ok {
		return "", Invalid(t.vendor, "role", "%q is not supported", r.String())
	}
	return token, nil
}

// FromWire returns the canonical role for token, or RoleUnknown.
func (t RoleTable) FromWire(token string) messages.Role {
	if r, ok := t.fromWire[token]; ok {
		return r
	}
	return messages.RoleUnknown
}

// Supports reports whether r can be sent to the vendor.
func (t RoleTable) Supports(r messages.Role) bool {
	_, ok := t.toWire[r]
	return ok
}

// Roles lists the supported canonical roles in a stable order.
func (t RoleTable) Roles() []messages.Role {
	return slices.Sorted(maps.Keys(t.toWire))
}

// FinishReasons maps vendor finish reason tokens to canonical values.
// Unknown tokens map to FinishNone.
type FinishReasons struct {
	table    map[string]FinishReason
	foldCase bool
}

// NewFinishReasons creates an exact match table.
func NewFinishReasons(table map[string]FinishReason) FinishReasons {
	return FinishReasons{table: maps.Clone(table)}
}

// CaseInsensitive returns a copy of f that ignores the case of the token.
func (f FinishReasons) CaseInsensitive() FinishReasons {
	folded := make(map[string]FinishReason, len(f.table))
	for k, v := range f.table {
		folded[strings.ToLower(k)] = v
	}
	return FinishReasons{table: folded, foldCase: true}
}

// Map translates a vendor token.
func (f FinishReasons) Map(token string) FinishReason {
	if f.foldCase {
		token = strings.ToLower(token)
	}
	return f.table[token]
}

// MapPtr translates an optional token; a nil token yields nil.
func (f FinishReasons) MapPtr(token *string) *FinishReason {
	if token == nil || *token == "" {
		return nil
	}
	r := f.Map(*token)
	return &r
}
