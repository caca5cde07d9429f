package filter

import (
	"ikh/dicom-tree/internal/models"
	"ikh/dicom-tree/internal/tags"
)

// Dropped counts nodes removed at each level, either because a check
// failed or because nothing below them was kept. Nodes under a dropped
// parent are not counted again.
type Dropped struct {
	Studies   int
	Series    int
	Instances int
}

func (f *Filter) passes(c tags.Category, lookup func(string) (models.TagNode, bool)) bool {
	for _, cond := range f.levels[c] {
		if !cond.match(lookup) {
			return false
		}
	}
	return true
}

// Prune returns a copy of out holding only the studies, series and
// instances that pass every check at their level. A series is kept only
// if one of its instances is, and a study only if one of its series is.
// out is not modified.
func (f *Filter) Prune(out *models.OutputTree) (*models.OutputTree, Dropped) {
	var dropped Dropped
	pruned := &models.OutputTree{Directory: out.Directory, Studies: []*models.StudyNode{}}

	for _, study := range out.Studies {
		if !f.passes(tags.Study, study.Lookup) {
			dropped.Studies++
			continue
		}
		keptStudy := &models.StudyNode{UID: study.UID, Tags: study.Tags}
		for _, series := range study.Series {
			if !f.passes(tags.Series, series.Lookup) {
				dropped.Series++
				continue
			}
			keptSeries := &models.SeriesNode{UID: series.UID, Tags: series.Tags}
			for _, inst := range series.Instances {
				if !f.passes(tags.Instance, inst.Lookup) {
					dropped.Instances++
					continue
				}
				keptSeries.Instances = append(keptSeries.Instances, inst)
			}
			if len(keptSeries.Instances) == 0 {
				dropped.Series++
				continue
			}
			keptStudy.Series = append(keptStudy.Series, keptSeries)
		}
		if len(keptStudy.Series) == 0 {
			dropped.Studies++
			continue
		}
		pruned.Studies = append(pruned.Studies, keptStudy)
	}
	return pruned, dropped
}
