package decode

import (
	"ikh/dicom-tree/internal/models"
	"ikh/dicom-tree/internal/tags"
)

// BuildNode decodes one element into a TagNode. Empty elements return
// ErrEmpty and sequences ErrSequence; callers leave those out of the
// parent node.
func BuildNode(k tags.Key, vr string, raw []byte, text string) (models.TagNode, error) {
	if vr != VRSequence && len(raw) == 0 && text == "" {
		return models.TagNode{}, ErrEmpty
	}
	value, err := Decode(vr, raw, text)
	if err != nil {
		return models.TagNode{}, err
	}
	return models.TagNode{
		Group:   k.GroupHex(),
		Element: k.ElementHex(),
		VR:      vr,
		Value:   value,
	}, nil
}
