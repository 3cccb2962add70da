// Package model holds the calendar domain types shared by the codecs, the
// providers and the Store.
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// AccessLevel is a calendar's access level as the provider reports it.
type AccessLevel int

const (
	AccessNone        AccessLevel = 0
	AccessFreeBusy    AccessLevel = 100
	AccessRead        AccessLevel = 200
	AccessRespond     AccessLevel = 300
	AccessOverride    AccessLevel = 400
	AccessContributor AccessLevel = 500
	AccessEditor      AccessLevel = 600
	AccessOwner       AccessLevel = 700
	AccessRoot        AccessLevel = 800
)

var accessLevelNames = map[AccessLevel]string{
	AccessNone:        "none",
	AccessFreeBusy:    "freebusy",
	AccessRead:        "read",
	AccessRespond:     "respond",
	AccessOverride:    "override",
	AccessContributor: "contributor",
	AccessEditor:      "editor",
	AccessOwner:       "owner",
	AccessRoot:        "root",
}

func (a AccessLevel) String() string {
	if name, ok := accessLevelNames[a]; ok {
		return name
	}
	return "none"
}

// ParseAccessLevel maps a level name to its value. Unknown names map to
// AccessNone and ok=false.
func ParseAccessLevel(name string) (AccessLevel, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for level, n := range accessLevelNames {
		if n == name {
			return level, true
		}
	}
	return AccessNone, false
}

// AllowsModifications reports whether events on a calendar with this level
// may be written.
func (a AccessLevel) AllowsModifications() bool {
	switch a {
	case AccessRoot, AccessOwner, AccessEditor, AccessContributor:
		return true
	}
	return false
}

// Color is a 24-bit RGB value.
type Color uint32

// String renders the color as #RRGGBB, ignoring any alpha byte.
func (c Color) String() string {
	return fmt.Sprintf("#%06X", uint32(c)&0xFFFFFF)
}

// ParseColor reads "#RRGGBB" or "RRGGBB".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, fmt.Errorf("invalid color %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

// Calendar is a calendar as read back from the provider.
type Calendar struct {
	ID                    string
	Title                 string
	Source                string
	Type                  string
	IsPrimary             bool
	AccessLevel           AccessLevel
	AllowedAvailabilities []Availability
	Color                 Color
}

// AllowsModifications is derived from the access level.
func (c Calendar) AllowsModifications() bool {
	return c.AccessLevel.AllowsModifications()
}
