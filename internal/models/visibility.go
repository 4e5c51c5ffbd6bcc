package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/mdx/internal/shared"
)

// VisibilityKind names one of the three playlist access policies.
type VisibilityKind string

const (
	VisibilityPrivate VisibilityKind = "private" // owner only
	VisibilityPublic  VisibilityKind = "public"  // recorded, no read path for non-owners yet
	VisibilityCode    VisibilityKind = "code"    // readable by any signed-in holder of the access code
)

// Visibility is the access policy of a [Playlist].
//
// The zero value is private. A code visibility always carries a non-empty code.
type Visibility struct {
	kind VisibilityKind
	code string
}

// PrivateVisibility returns the owner-only policy.
func PrivateVisibility() Visibility { return Visibility{kind: VisibilityPrivate} }

// PublicVisibility returns the public policy.
func PublicVisibility() Visibility { return Visibility{kind: VisibilityPublic} }

// CodeVisibility returns the shared-by-code policy. Codes are case-insensitive and stored upper-case.
func CodeVisibility(code string) (Visibility, error) {
	code = NormalizeAccessCode(code)
	if code == "" {
		return Visibility{}, fmt.Errorf("%w: access code is required for code visibility", shared.ErrInvalidArgument)
	}
	return Visibility{kind: VisibilityCode, code: code}, nil
}

// ParseVisibility builds a [Visibility] from its stored or submitted parts.
//
// An empty kind means private. The code is ignored unless kind is "code".
func ParseVisibility(kind, code string) (Visibility, error) {
	switch VisibilityKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", VisibilityPrivate:
		return PrivateVisibility(), nil
	case VisibilityPublic:
		return PublicVisibility(), nil
	case VisibilityCode:
		return CodeVisibility(code)
	default:
		return Visibility{}, fmt.Errorf("%w: unknown visibility %q", shared.ErrInvalidArgument, kind)
	}
}

// Kind returns the policy kind.
func (v Visibility) Kind() VisibilityKind {
	if v.kind == "" {
		return VisibilityPrivate
	}
	return v.kind
}

// AccessCode returns the sharing code and whether the policy has one.
func (v Visibility) AccessCode() (string, bool) {
	return v.code, v.kind == VisibilityCode
}

// String implements [fmt.Stringer].
func (v Visibility) String() string {
	return string(v.Kind())
}

// NormalizeAccessCode trims and upper-cases a submitted code.
func NormalizeAccessCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
