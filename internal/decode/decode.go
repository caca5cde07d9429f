package decode

import (
	"encoding/binary"
	"errors"
	"strings"
	"unicode"

	"ikh/dicom-tree/internal/models"
)

// VR codes that are not decoded as backslash separated text.
const (
	VRUnsignedShort = "US"
	VRSignedShort   = "SS"
	VRSequence      = "SQ"
)

var (
	ErrDecodeOverrun = errors.New("decode: binary value shorter than 2 bytes")
	ErrSequence      = errors.New("decode: sequence values are not decoded")
	ErrEmpty         = errors.New("decode: empty value")
)

// Decode interprets a value by its VR. US and SS read the first two bytes
// as a little endian integer. Any other VR splits text on the backslash
// and trims whitespace and NUL padding from each component; an empty
// text yields no components.
func Decode(vr string, raw []byte, text string) (models.Value, error) {
	switch vr {
	case VRSequence:
		return models.Value{}, ErrSequence
	case VRUnsignedShort:
		if len(raw) < 2 {
			return models.Value{}, ErrDecodeOverrun
		}
		return models.Unsigned(binary.LittleEndian.Uint16(raw)), nil
	case VRSignedShort:
		if len(raw) < 2 {
			return models.Value{}, ErrDecodeOverrun
		}
		return models.Signed(int16(binary.LittleEndian.Uint16(raw))), nil
	}
	return models.Strings(Split(text)...), nil
}

func Split(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, `\`)
	for i, p := range parts {
		parts[i] = strings.TrimFunc(p, isPadding)
	}
	return parts
}

func isPadding(r rune) bool {
	return r == 0x00 || unicode.IsSpace(r)
}
