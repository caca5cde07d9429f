package dataset

import (
	"errors"
	"fmt"

	"ikh/dicom-tree/internal/tags"
)

// RawValue is one element as read from a file: its value representation
// code and the undecoded value bytes. Binary numeric VRs hold little
// endian bytes; every other VR holds its textual value with multiple
// values separated by a backslash.
type RawValue struct {
	VR    string
	Bytes []byte
}

func (v RawValue) String() string {
	return string(v.Bytes)
}

// Dataset is the flat per-file view of every element read from one file.
type Dataset map[tags.Key]RawValue

func (d Dataset) Get(k tags.Key) (RawValue, bool) {
	v, ok := d[k]
	return v, ok
}

// Reader turns one file into a Dataset.
type Reader interface {
	Read(path string) (Dataset, error)
}

var ErrUnreadable = errors.New("unreadable DICOM file")

type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("could not read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrUnreadable }
