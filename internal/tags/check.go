package tags

import (
	"fmt"

	dcmtag "github.com/suyashkumar/dicom/pkg/tag"
)

// Problem is a tag file entry that disagrees with the DICOM data
// dictionary.
type Problem struct {
	Category Category
	Entry    Entry
	Known    string
}

func (p Problem) String() string {
	if p.Known == "" {
		return fmt.Sprintf("%s %s %q: not in the DICOM data dictionary", p.Category, p.Entry.Key, p.Entry.Name)
	}
	return fmt.Sprintf("%s %s %q: data dictionary name is %q", p.Category, p.Entry.Key, p.Entry.Name, p.Known)
}

// Check compares every entry against the standard data dictionary.
// Private and otherwise unknown tags are reported but are not errors.
func (d *Dictionary) Check() []Problem {
	var problems []Problem
	for _, c := range Categories {
		for _, e := range d.Entries(c) {
			info, err := dcmtag.Find(dcmtag.Tag{Group: e.Key.Group, Element: e.Key.Element})
			switch {
			case err != nil:
				problems = append(problems, Problem{Category: c, Entry: e})
			case info.Name != e.Name:
				problems = append(problems, Problem{Category: c, Entry: e, Known: info.Name})
			}
		}
	}
	return problems
}
