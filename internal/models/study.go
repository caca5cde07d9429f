package models

import (
	"slices"
	"strconv"
	"strings"
)

const (
	StudyUIDName    = "StudyInstanceUID"
	SeriesUIDName   = "SeriesInstanceUID"
	InstanceUIDName = "SOPInstanceUID"

	seriesListName   = "SeriesList"
	instanceListName = "InstanceList"
)

type Identifiers struct {
	StudyUID    string
	SeriesUID   string
	InstanceUID string
}

// TagNode is one decoded element, addressed by its lowercase group and
// element hex digits.
type TagNode struct {
	Group   string
	Element string
	VR      string
	Value   Value
}

func (t TagNode) IsZero() bool {
	return t.Group == "" && t.Element == ""
}

func (t TagNode) Tree(name string) *Node {
	values := Array("Value")
	for _, c := range t.Value.Components() {
		values.Add(Leaf("", c))
	}
	return Object(name,
		Leaf("Group", t.Group),
		Leaf("Element", t.Element),
		Leaf("vr", t.VR),
		values,
	)
}

// Tags maps display names to nodes, keeping the order in which names were
// first set. The zero value is ready to use.
type Tags struct {
	names []string
	nodes map[string]TagNode
}

func (t *Tags) Set(name string, node TagNode) {
	if t.nodes == nil {
		t.nodes = make(map[string]TagNode)
	}
	if _, ok := t.nodes[name]; !ok {
		t.names = append(t.names, name)
	}
	t.nodes[name] = node
}

func (t *Tags) Get(name string) (TagNode, bool) {
	n, ok := t.nodes[name]
	return n, ok
}

func (t *Tags) Names() []string {
	return t.names
}

func (t *Tags) Len() int {
	return len(t.names)
}

// addTo appends every tag whose name is neither already a child of n nor
// one of reserved.
func (t *Tags) addTo(n *Node, reserved ...string) {
	for _, name := range t.names {
		if n.Child(name) != nil || slices.Contains(reserved, name) {
			continue
		}
		n.Add(t.nodes[name].Tree(name))
	}
}

type InstanceNode struct {
	Filename string
	FileSize uint64
	UID      TagNode
	Tags     Tags
}

func (i *InstanceNode) Tree() *Node {
	n := Object("",
		Leaf("Filename", i.Filename),
		Leaf("FileSize", strconv.FormatUint(i.FileSize, 10)),
	)
	if !i.UID.IsZero() {
		n.Add(i.UID.Tree(InstanceUIDName))
	}
	i.Tags.addTo(n)
	return n
}

// Lookup finds a tag by display name, including SOPInstanceUID.
func (i *InstanceNode) Lookup(name string) (TagNode, bool) {
	if name == InstanceUIDName && !i.UID.IsZero() {
		return i.UID, true
	}
	return i.Tags.Get(name)
}

type SeriesNode struct {
	UID       TagNode
	Tags      Tags
	Instances []*InstanceNode
}

func (s *SeriesNode) Tree() *Node {
	n := Object("", s.UID.Tree(SeriesUIDName))
	s.Tags.addTo(n, instanceListName)
	list := Array(instanceListName)
	for _, inst := range s.Instances {
		list.Add(inst.Tree())
	}
	return n.Add(list)
}

func (s *SeriesNode) Lookup(name string) (TagNode, bool) {
	if name == SeriesUIDName && !s.UID.IsZero() {
		return s.UID, true
	}
	return s.Tags.Get(name)
}

type StudyNode struct {
	UID    TagNode
	Tags   Tags
	Series []*SeriesNode
}

func (s *StudyNode) Tree() *Node {
	n := Object("", s.UID.Tree(StudyUIDName))
	s.Tags.addTo(n, seriesListName)
	list := Array(seriesListName)
	for _, series := range s.Series {
		list.Add(series.Tree())
	}
	return n.Add(list)
}

func (s *StudyNode) Lookup(name string) (TagNode, bool) {
	if name == StudyUIDName && !s.UID.IsZero() {
		return s.UID, true
	}
	return s.Tags.Get(name)
}

// OutputTree is the grouped result of one run.
type OutputTree struct {
	Directory string
	Studies   []*StudyNode
}

func (o *OutputTree) Tree() *Node {
	list := Array("StudyList")
	for _, s := range o.Studies {
		list.Add(s.Tree())
	}
	return Object("", Leaf("Directory", o.Directory), list)
}

// StudyUIDs lists the study identifiers in tree order.
func (o *OutputTree) StudyUIDs() []string {
	uids := make([]string, 0, len(o.Studies))
	for _, s := range o.Studies {
		uids = append(uids, strings.Join(s.UID.Value.Components(), "\\"))
	}
	return uids
}

// FileRecord is everything extracted from one file that can be placed in
// the hierarchy.
type FileRecord struct {
	IDs        Identifiers
	Instance   *InstanceNode
	StudyUID   TagNode
	SeriesUID  TagNode
	StudyTags  Tags
	SeriesTags Tags
}
