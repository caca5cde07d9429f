package emit

import (
	"io"
	"iter"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"ikh/dicom-tree/internal/models"
)

// Render yields the tree one line at a time, indented two spaces per
// level, with every leaf quoted and a comma after each child but the
// last.
func Render(root *models.Node) iter.Seq[string] {
	return func(yield func(string) bool) {
		render(root, 0, "", true, yield)
	}
}

func render(n *models.Node, level int, label string, last bool, yield func(string) bool) bool {
	indent := strings.Repeat("  ", level)
	sep := ","
	if last {
		sep = ""
	}

	if n.Kind == models.LeafKind {
		return yield(indent + label + strconv.Quote(n.Data) + sep)
	}

	open, close := "{", "}"
	if n.Kind == models.ArrayKind {
		open, close = "[", "]"
	}
	if len(n.Children) == 0 {
		return yield(indent + label + open + close + sep)
	}
	if !yield(indent + label + open) {
		return false
	}
	for i, c := range n.Children {
		childLabel := ""
		if n.Kind == models.ObjectKind {
			childLabel = strconv.Quote(c.Name) + ": "
		}
		if !render(c, level+1, childLabel, i == len(n.Children)-1, yield) {
			return false
		}
	}
	return yield(indent + close + sep)
}

// Serialize writes the tree as indented JSON.
func Serialize(w io.Writer, root *models.Node) error {
	data, err := json.MarshalIndent(root, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
