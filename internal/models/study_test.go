package models

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(v uint16) TagNode {
	return TagNode{Group: "0028", Element: "0010", VR: "US", Value: Unsigned(v)}
}

func uid(group, element, value string) TagNode {
	return TagNode{Group: group, Element: element, VR: "UI", Value: Strings(value)}
}

func TestValueComponents(t *testing.T) {
	assert.Equal(t, []string{"512"}, Unsigned(512).Components())
	assert.Equal(t, []string{"-1"}, Signed(-1).Components())
	assert.Equal(t, []string{"a", "b"}, Strings("a", "b").Components())
	assert.Equal(t, 0, Strings().Len())
	assert.Equal(t, 1, Signed(3).Len())
}

func TestTagsKeepFirstPosition(t *testing.T) {
	var tags Tags
	tags.Set("Rows", rows(1))
	tags.Set("Columns", rows(2))
	tags.Set("Rows", rows(3))

	assert.Equal(t, []string{"Rows", "Columns"}, tags.Names())
	n, ok := tags.Get("Rows")
	require.True(t, ok)
	assert.Equal(t, uint16(3), n.Value.Unsigned)
}

func TestOutputTreeJSON(t *testing.T) {
	inst := &InstanceNode{Filename: "/d/a.dcm", FileSize: 1024, UID: uid("0008", "0018", "1.1.1")}
	inst.Tags.Set("Rows", rows(512))
	series := &SeriesNode{UID: uid("0020", "000e", "1.1"), Instances: []*InstanceNode{inst}}
	series.Tags.Set("Modality", TagNode{Group: "0008", Element: "0060", VR: "CS", Value: Strings("CT")})
	study := &StudyNode{UID: uid("0020", "000d", "1"), Series: []*SeriesNode{series}}
	tree := &OutputTree{Directory: "/d", Studies: []*StudyNode{study}}

	got, err := json.Marshal(tree.Tree())
	require.NoError(t, err)
	assert.Equal(t, `{"Directory":"/d","StudyList":[{`+
		`"StudyInstanceUID":{"Group":"0020","Element":"000d","vr":"UI","Value":["1"]},`+
		`"SeriesList":[{`+
		`"SeriesInstanceUID":{"Group":"0020","Element":"000e","vr":"UI","Value":["1.1"]},`+
		`"Modality":{"Group":"0008","Element":"0060","vr":"CS","Value":["CT"]},`+
		`"InstanceList":[{"Filename":"/d/a.dcm","FileSize":"1024",`+
		`"SOPInstanceUID":{"Group":"0008","Element":"0018","vr":"UI","Value":["1.1.1"]},`+
		`"Rows":{"Group":"0028","Element":"0010","vr":"US","Value":["512"]}}]}]}]}`, string(got))
}

func TestEmptyTree(t *testing.T) {
	got, err := json.Marshal((&OutputTree{Directory: "/empty"}).Tree())
	require.NoError(t, err)
	assert.Equal(t, `{"Directory":"/empty","StudyList":[]}`, string(got))
}

func TestReservedNamesNotDuplicated(t *testing.T) {
	inst := &InstanceNode{Filename: "f"}
	inst.Tags.Set("Filename", TagNode{Group: "0004", Element: "1500", VR: "CS", Value: Strings("x")})
	n := inst.Tree()
	assert.Len(t, n.Children, 2)
	assert.Equal(t, "f", n.Child("Filename").Data)
}

func TestListNamesNotDuplicated(t *testing.T) {
	series := &SeriesNode{UID: uid("0020", "000e", "1.2.3")}
	series.Tags.Set("InstanceList", TagNode{Group: "0009", Element: "0010", VR: "LO", Value: Strings("x")})
	series.Instances = []*InstanceNode{{Filename: "a"}}
	study := &StudyNode{UID: uid("0020", "000d", "1.2"), Series: []*SeriesNode{series}}
	study.Tags.Set("SeriesList", TagNode{Group: "0009", Element: "0011", VR: "LO", Value: Strings("y")})

	data, err := json.Marshal((&OutputTree{Directory: "/in", Studies: []*StudyNode{study}}).Tree())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), `"SeriesList"`))
	assert.Equal(t, 1, strings.Count(string(data), `"InstanceList"`))

	n := study.Tree()
	require.Len(t, n.Children, 2)
	assert.Equal(t, ArrayKind, n.Child("SeriesList").Kind)
}

func TestLookup(t *testing.T) {
	inst := &InstanceNode{UID: uid("0008", "0018", "1.2.3.4")}
	inst.Tags.Set("Rows", rows(512))

	node, ok := inst.Lookup("SOPInstanceUID")
	require.True(t, ok)
	assert.Equal(t, []string{"1.2.3.4"}, node.Value.Items)
	_, ok = inst.Lookup("Rows")
	assert.True(t, ok)
	_, ok = inst.Lookup("Columns")
	assert.False(t, ok)

	study := &StudyNode{UID: uid("0020", "000d", "1.2")}
	_, ok = study.Lookup("StudyInstanceUID")
	assert.True(t, ok)
	_, ok = (&SeriesNode{}).Lookup("SeriesInstanceUID")
	assert.False(t, ok)

	tree := &OutputTree{Studies: []*StudyNode{study, {UID: uid("0020", "000d", "1.3")}}}
	assert.Equal(t, []string{"1.2", "1.3"}, tree.StudyUIDs())
}
