package emit

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disiqueira/gotree/v3"

	"ikh/dicom-tree/internal/models"
	"ikh/dicom-tree/internal/tags"
)

// SummaryTree draws studies, series and instance file names as a
// terminal tree.
func SummaryTree(out *models.OutputTree) string {
	root := gotree.New(out.Directory)
	for _, study := range out.Studies {
		s := root.Add("Study " + joinValue(study.UID))
		for _, series := range study.Series {
			n := len(series.Instances)
			label := fmt.Sprintf("Series %s (%d %s)", joinValue(series.UID), n, plural(n, "instance", "instances"))
			sr := s.Add(label)
			for _, inst := range series.Instances {
				sr.Add(filepath.Base(inst.Filename))
			}
		}
	}
	return root.Print()
}

func joinValue(n models.TagNode) string {
	return strings.Join(n.Value.Components(), `\`)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

const missing = "NA"

// WriteCSV writes one row per series: both UIDs, the study and series
// tags, the tags of the series' first instance and the instance count.
func WriteCSV(w io.Writer, out *models.OutputTree, dict *tags.Dictionary) error {
	cw := csv.NewWriter(w)

	header := []string{models.StudyUIDName, models.SeriesUIDName}
	for _, c := range tags.Categories {
		for _, e := range dict.Entries(c) {
			header = append(header, e.Name)
		}
	}
	header = append(header, "NumberInstances")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, study := range out.Studies {
		for _, series := range study.Series {
			row := []string{joinValue(study.UID), joinValue(series.UID)}
			row = appendValues(row, &study.Tags, dict.Entries(tags.Study))
			row = appendValues(row, &series.Tags, dict.Entries(tags.Series))
			var first *models.Tags
			if len(series.Instances) > 0 {
				first = &series.Instances[0].Tags
			}
			row = appendValues(row, first, dict.Entries(tags.Instance))
			row = append(row, strconv.Itoa(len(series.Instances)))
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func appendValues(row []string, t *models.Tags, entries []tags.Entry) []string {
	for _, e := range entries {
		if t == nil {
			row = append(row, missing)
			continue
		}
		node, ok := t.Get(e.Name)
		if !ok {
			row = append(row, missing)
			continue
		}
		row = append(row, joinValue(node))
	}
	return row
}
