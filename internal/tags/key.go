package tags

import (
	"fmt"
	"strconv"
	"strings"
)

// Key addresses one data element by group and element number. Its
// canonical form is the lowercase "gggg|eeee" string.
type Key struct {
	Group   uint16
	Element uint16
}

var (
	StudyUID    = Key{0x0020, 0x000d}
	SeriesUID   = Key{0x0020, 0x000e}
	InstanceUID = Key{0x0008, 0x0018}
)

func (k Key) String() string {
	return k.GroupHex() + "|" + k.ElementHex()
}

func (k Key) GroupHex() string {
	return fmt.Sprintf("%04x", k.Group)
}

func (k Key) ElementHex() string {
	return fmt.Sprintf("%04x", k.Element)
}

// NewKey builds a Key from group and element hex strings of up to four
// digits, in either case.
func NewKey(group, element string) (Key, error) {
	g, err := parseHex16(group)
	if err != nil {
		return Key{}, fmt.Errorf("group %q: %w", group, err)
	}
	e, err := parseHex16(element)
	if err != nil {
		return Key{}, fmt.Errorf("element %q: %w", element, err)
	}
	return Key{Group: g, Element: e}, nil
}

// ParseKey accepts "gggg|eeee" and "gggg,eeee", optionally wrapped in
// parentheses.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), ")")
	group, element, ok := strings.Cut(s, "|")
	if !ok {
		group, element, ok = strings.Cut(s, ",")
	}
	if !ok {
		return Key{}, fmt.Errorf("malformed tag key %q", s)
	}
	return NewKey(group, element)
}

func parseHex16(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 4 {
		return 0, fmt.Errorf("want 1 to 4 hex digits")
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}
