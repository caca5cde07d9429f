package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v2"
)

type Category int

const (
	Study Category = iota
	Series
	Instance
)

var Categories = []Category{Study, Series, Instance}

func (c Category) String() string {
	switch c {
	case Study:
		return "Study"
	case Series:
		return "Series"
	case Instance:
		return "Instance"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// RawEntry is one tag definition as it appears in a tag file.
type RawEntry struct {
	Group   string `json:"Group" yaml:"Group"`
	Element string `json:"Element" yaml:"Element"`
	Name    string `json:"Name" yaml:"Name"`
}

type Entry struct {
	Key  Key
	Name string
}

// ConfigError reports a tag file entry that cannot be turned into a Key.
type ConfigError struct {
	Category Category
	Index    int
	Field    string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tag file: %s entry %d: %s: %v", e.Category, e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("tag file: %s entry %d: missing %s", e.Category, e.Index, e.Field)
}

func (e *ConfigError) Unwrap() error { return e.Err }

type mapping struct {
	order []Key
	names map[Key]string
}

func (m *mapping) put(k Key, name string) {
	if _, ok := m.names[k]; !ok {
		m.order = append(m.order, k)
	}
	m.names[k] = name
}

// Dictionary holds the tags to extract at each hierarchy level. It is
// immutable once loaded.
type Dictionary struct {
	categories [3]mapping
}

// Load builds a Dictionary from the three per-category entry lists. A
// duplicate key within a category keeps its first position and takes the
// last name.
func Load(study, series, instance []RawEntry) (*Dictionary, error) {
	d := &Dictionary{}
	for i, entries := range [][]RawEntry{study, series, instance} {
		c := Category(i)
		d.categories[c].names = make(map[Key]string, len(entries))
		for n, raw := range entries {
			entry, err := raw.resolve(c, n)
			if err != nil {
				return nil, err
			}
			d.categories[c].put(entry.Key, entry.Name)
		}
	}
	return d, nil
}

func (r RawEntry) resolve(c Category, index int) (Entry, error) {
	for _, f := range []struct{ name, value string }{
		{"Group", r.Group}, {"Element", r.Element}, {"Name", r.Name},
	} {
		if strings.TrimSpace(f.value) == "" {
			return Entry{}, &ConfigError{Category: c, Index: index, Field: f.name}
		}
	}
	g, err := parseHex16(r.Group)
	if err != nil {
		return Entry{}, &ConfigError{Category: c, Index: index, Field: "Group", Err: err}
	}
	e, err := parseHex16(r.Element)
	if err != nil {
		return Entry{}, &ConfigError{Category: c, Index: index, Field: "Element", Err: err}
	}
	return Entry{Key: Key{Group: g, Element: e}, Name: r.Name}, nil
}

func (d *Dictionary) Lookup(c Category, k Key) (string, bool) {
	name, ok := d.categories[c].names[k]
	return name, ok
}

// Entries returns a category's entries in tag file order.
func (d *Dictionary) Entries(c Category) []Entry {
	m := d.categories[c]
	entries := make([]Entry, 0, len(m.order))
	for _, k := range m.order {
		entries = append(entries, Entry{Key: k, Name: m.names[k]})
	}
	return entries
}

func (d *Dictionary) Len(c Category) int {
	return len(d.categories[c].order)
}

type tagFile struct {
	Study    *[]RawEntry `json:"Study" yaml:"Study"`
	Series   *[]RawEntry `json:"Series" yaml:"Series"`
	Instance *[]RawEntry `json:"Instance" yaml:"Instance"`
}

// LoadFile reads a JSON or YAML tag file. Categories the file leaves out
// fall back to the default tag lists.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf tagFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &tf)
	default:
		err = json.Unmarshal(data, &tf)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing tag file %s: %w", path, err)
	}

	return Load(
		orDefault(tf.Study, DefaultStudy),
		orDefault(tf.Series, DefaultSeries),
		orDefault(tf.Instance, DefaultInstance),
	)
}

func orDefault(entries *[]RawEntry, def []RawEntry) []RawEntry {
	if entries == nil {
		return def
	}
	return *entries
}

var DefaultStudy = []RawEntry{
	{Group: "0008", Element: "0050", Name: "AccessionNumber"},
	{Group: "0008", Element: "0020", Name: "StudyDate"},
	{Group: "0008", Element: "0030", Name: "StudyTime"},
	{Group: "0008", Element: "1030", Name: "StudyDescription"},
}

var DefaultSeries = []RawEntry{
	{Group: "0008", Element: "0060", Name: "Modality"},
	{Group: "0008", Element: "0021", Name: "SeriesDate"},
	{Group: "0008", Element: "0031", Name: "SeriesTime"},
	{Group: "0008", Element: "103E", Name: "SeriesDescription"},
	{Group: "0020", Element: "0011", Name: "SeriesNumber"},
}

var DefaultInstance = []RawEntry{
	{Group: "0018", Element: "0050", Name: "SliceThickness"},
	{Group: "0008", Element: "0008", Name: "ImageType"},
}
