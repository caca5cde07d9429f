package assembler

import (
	"errors"
	"fmt"
	"strings"

	"ikh/dicom-tree/internal/dataset"
	"ikh/dicom-tree/internal/decode"
	"ikh/dicom-tree/internal/models"
	"ikh/dicom-tree/internal/tags"
)

var ErrMissingIdentifiers = errors.New("missing study, series or instance UID")

// Omission is a configured tag that was present in the file but left out
// of its node.
type Omission struct {
	Category tags.Category
	Key      tags.Key
	Err      error
}

type Assembler struct {
	dict *tags.Dictionary
}

func New(dict *tags.Dictionary) *Assembler {
	return &Assembler{dict: dict}
}

// AssembleInstance builds the placement record for one file. Files
// without all three UIDs return ErrMissingIdentifiers. Configured tags
// absent from the file are skipped; present tags that cannot be decoded
// are reported as omissions.
func (a *Assembler) AssembleInstance(path string, size uint64, ds dataset.Dataset) (*models.FileRecord, []Omission, error) {
	studyUID, studyID, err := identifier(ds, tags.StudyUID)
	if err != nil {
		return nil, nil, err
	}
	seriesUID, seriesID, err := identifier(ds, tags.SeriesUID)
	if err != nil {
		return nil, nil, err
	}
	instanceUID, instanceID, err := identifier(ds, tags.InstanceUID)
	if err != nil {
		return nil, nil, err
	}

	rec := &models.FileRecord{
		IDs: models.Identifiers{
			StudyUID:    studyID,
			SeriesUID:   seriesID,
			InstanceUID: instanceID,
		},
		Instance: &models.InstanceNode{
			Filename: path,
			FileSize: size,
			UID:      instanceUID,
		},
		StudyUID:  studyUID,
		SeriesUID: seriesUID,
	}

	var omitted []Omission
	for _, c := range tags.Categories {
		target := a.target(rec, c)
		for _, e := range a.dict.Entries(c) {
			raw, ok := ds.Get(e.Key)
			if !ok {
				continue
			}
			node, err := decode.BuildNode(e.Key, raw.VR, raw.Bytes, raw.String())
			if err != nil {
				omitted = append(omitted, Omission{Category: c, Key: e.Key, Err: err})
				continue
			}
			target.Set(e.Name, node)
		}
	}
	return rec, omitted, nil
}

func (a *Assembler) target(rec *models.FileRecord, c tags.Category) *models.Tags {
	switch c {
	case tags.Study:
		return &rec.StudyTags
	case tags.Series:
		return &rec.SeriesTags
	default:
		return &rec.Instance.Tags
	}
}

func identifier(ds dataset.Dataset, k tags.Key) (models.TagNode, string, error) {
	raw, ok := ds.Get(k)
	if !ok {
		return models.TagNode{}, "", fmt.Errorf("%w: %s absent", ErrMissingIdentifiers, k)
	}
	node, err := decode.BuildNode(k, raw.VR, raw.Bytes, raw.String())
	if err != nil {
		return models.TagNode{}, "", fmt.Errorf("%w: %s: %v", ErrMissingIdentifiers, k, err)
	}
	id := strings.Join(node.Value.Components(), `\`)
	if id == "" {
		return models.TagNode{}, "", fmt.Errorf("%w: %s empty", ErrMissingIdentifiers, k)
	}
	return node, id, nil
}
