package models

import (
	"bytes"

	json "github.com/goccy/go-json"
)

type Kind int

const (
	LeafKind Kind = iota
	ObjectKind
	ArrayKind
)

// Node is an ordered tree with string leaves. Object children are keyed by
// Name; array children ignore it.
type Node struct {
	Name     string
	Kind     Kind
	Data     string
	Children []*Node
}

func Leaf(name, data string) *Node {
	return &Node{Name: name, Kind: LeafKind, Data: data}
}

func Object(name string, children ...*Node) *Node {
	return &Node{Name: name, Kind: ObjectKind, Children: children}
}

func Array(name string, children ...*Node) *Node {
	return &Node{Name: name, Kind: ArrayKind, Children: children}
}

func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// Child returns the first child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	switch n.Kind {
	case LeafKind:
		return writeString(buf, n.Data)
	case ArrayKind:
		buf.WriteByte('[')
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := c.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		buf.WriteByte('{')
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, c.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := c.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
