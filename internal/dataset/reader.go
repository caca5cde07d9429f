package dataset

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"

	"ikh/dicom-tree/internal/tags"
)

// FileReader reads DICOM Part 10 files up to the pixel data.
type FileReader struct{}

func (FileReader) Read(path string) (Dataset, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	return FromDICOM(ds), nil
}

// FromDICOM flattens the top level elements of a parsed file. Pixel data
// and anything else without a usable value is left out.
func FromDICOM(ds dicom.Dataset) Dataset {
	out := make(Dataset, len(ds.Elements))
	for _, el := range ds.Elements {
		if el == nil || el.Value == nil {
			continue
		}
		raw, ok := rawValue(el.RawValueRepresentation, el.Value.GetValue())
		if !ok {
			continue
		}
		out[tags.Key{Group: el.Tag.Group, Element: el.Tag.Element}] = raw
	}
	return out
}

func rawValue(vr string, value interface{}) (RawValue, bool) {
	switch v := value.(type) {
	case []string:
		return RawValue{VR: vr, Bytes: []byte(strings.Join(v, `\`))}, true
	case []byte:
		return RawValue{VR: vr, Bytes: v}, true
	case []int:
		if vr == "US" || vr == "SS" {
			b := make([]byte, 0, 2*len(v))
			for _, n := range v {
				b = binary.LittleEndian.AppendUint16(b, uint16(n))
			}
			return RawValue{VR: vr, Bytes: b}, true
		}
		parts := make([]string, len(v))
		for i, n := range v {
			parts[i] = strconv.Itoa(n)
		}
		return RawValue{VR: vr, Bytes: []byte(strings.Join(parts, `\`))}, true
	case []float64:
		parts := make([]string, len(v))
		for i, f := range v {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return RawValue{VR: vr, Bytes: []byte(strings.Join(parts, `\`))}, true
	default:
		if vr == "SQ" {
			return RawValue{VR: vr}, true
		}
		return RawValue{}, false
	}
}
