package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ikh/dicom-tree/internal/assembler"
	"ikh/dicom-tree/internal/dataset"
	"ikh/dicom-tree/internal/metrics"
	"ikh/dicom-tree/internal/tags"
)

var rowsKey = tags.Key{Group: 0x0028, Element: 0x0010}

// fakeReader serves datasets by base file name.
type fakeReader map[string]dataset.Dataset

func (f fakeReader) Read(path string) (dataset.Dataset, error) {
	ds, ok := f[filepath.Base(path)]
	if !ok {
		return nil, &dataset.ReadError{Path: path, Err: errors.New("not a DICOM file")}
	}
	return ds, nil
}

// slowReader delays reads of the named files.
type slowReader struct {
	fakeReader
	slow map[string]time.Duration
}

func (s slowReader) Read(path string) (dataset.Dataset, error) {
	time.Sleep(s.slow[filepath.Base(path)])
	return s.fakeReader.Read(path)
}

func instance(study, series, uid string) dataset.Dataset {
	ds := dataset.Dataset{rowsKey: {VR: "US", Bytes: []byte{0x00, 0x02}}}
	if study != "" {
		ds[tags.StudyUID] = dataset.RawValue{VR: "UI", Bytes: []byte(study)}
	}
	if series != "" {
		ds[tags.SeriesUID] = dataset.RawValue{VR: "UI", Bytes: []byte(series)}
	}
	if uid != "" {
		ds[tags.InstanceUID] = dataset.RawValue{VR: "UI", Bytes: []byte(uid)}
	}
	return ds
}

func touch(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("DICM"), 0o644))
	}
}

func newScanner(t *testing.T, reader dataset.Reader, opts Options) (*Scanner, *metrics.Metrics) {
	t.Helper()
	dict, err := tags.Load(nil, nil, []tags.RawEntry{{Group: "0028", Element: "0010", Name: "Rows"}})
	require.NoError(t, err)
	m := metrics.New()
	return New(reader, assembler.New(dict), zaptest.NewLogger(t), m, opts), m
}

func TestEnumerateDepth(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "b.dcm", "a.dcm", "sub/c.dcm", "sub/deeper/d.dcm")

	names := func(files []File) []string {
		var out []string
		for i, f := range files {
			assert.Equal(t, i, f.Index)
			rel, err := filepath.Rel(root, f.Path)
			require.NoError(t, err)
			out = append(out, filepath.ToSlash(rel))
		}
		return out
	}

	files, err := Enumerate(root, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.dcm", "b.dcm"}, names(files))
	assert.Equal(t, uint64(4), files[0].Size)

	files, err = Enumerate(root, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.dcm", "b.dcm", "sub/c.dcm"}, names(files))

	files, err = Enumerate(root, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.dcm", "b.dcm", "sub/c.dcm", "sub/deeper/d.dcm"}, names(files))
}

func TestEnumerateMissingDirectory(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "nope"), 0)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunGroupsFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.dcm", "b.dcm", "c.dcm")
	reader := fakeReader{
		"a.dcm": instance("S1", "SE1", "I1"),
		"b.dcm": instance("S1", "SE1", "I2"),
		"c.dcm": instance("S1", "SE2", "I3"),
	}
	s, m := newScanner(t, reader, Options{Workers: 4})

	res, err := s.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 3, res.Placed)
	assert.Equal(t, 0, res.Skipped)

	require.Len(t, res.Tree.Studies, 1)
	study := res.Tree.Studies[0]
	require.Len(t, study.Series, 2)
	assert.Equal(t, "SE1", study.Series[0].UID.Value.Items[0])
	require.Len(t, study.Series[0].Instances, 2)
	assert.Equal(t, filepath.Join(root, "a.dcm"), study.Series[0].Instances[0].Filename)
	assert.Equal(t, filepath.Join(root, "b.dcm"), study.Series[0].Instances[1].Filename)

	assert.Equal(t, []string{"S1"}, res.Aggregator.UniqueStudyUIDs())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FilesScanned))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FilesPlaced))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Studies))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Series))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Instances))
}

func TestRunIsDeterministic(t *testing.T) {
	root := t.TempDir()
	reader := fakeReader{}
	for i, name := range []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10"} {
		touch(t, root, name+".dcm")
		series := "SE1"
		if i%3 == 0 {
			series = "SE2"
		}
		reader[name+".dcm"] = instance("S1", series, "I"+name)
	}

	serial, _ := newScanner(t, reader, Options{Workers: 1})
	parallel, _ := newScanner(t, reader, Options{Workers: 8})
	a, err := serial.Run(context.Background(), root)
	require.NoError(t, err)
	b, err := parallel.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, a.Tree, b.Tree)
}

func TestRunSkipsMissingIdentifiers(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.dcm", "b.dcm")
	reader := fakeReader{
		"a.dcm": instance("S1", "SE1", "I1"),
		"b.dcm": instance("S1", "", "I2"),
	}
	s, m := newScanner(t, reader, Options{Workers: 2})

	res, err := s.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Placed)
	assert.Equal(t, 1, res.Skipped)

	_, ok := res.Aggregator.SeriesOf("I2")
	assert.False(t, ok)
	_, ok = res.Aggregator.Instance("I2")
	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesSkipped.WithLabelValues("missing_identifiers")))
}

func TestRunAbortsOnUnreadable(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.dcm", "b.txt", "c.dcm", "d.txt")
	reader := fakeReader{
		"a.dcm": instance("S1", "SE1", "I1"),
		"c.dcm": instance("S1", "SE1", "I3"),
	}
	s, _ := newScanner(t, reader, Options{Workers: 1})

	res, err := s.Run(context.Background(), root)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, dataset.ErrUnreadable)

	var readErr *dataset.ReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, filepath.Join(root, "b.txt"), readErr.Path)
}

func TestRunAbortsOnFirstUnreadableInParallel(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.txt", "b.txt", "c.dcm", "d.txt")
	reader := slowReader{
		fakeReader: fakeReader{"c.dcm": instance("S1", "SE1", "I3")},
		slow:       map[string]time.Duration{"a.txt": 50 * time.Millisecond},
	}

	for range 10 {
		s, _ := newScanner(t, reader, Options{Workers: 4})
		_, err := s.Run(context.Background(), root)

		var readErr *dataset.ReadError
		require.ErrorAs(t, err, &readErr)
		assert.Equal(t, filepath.Join(root, "a.txt"), readErr.Path)
	}
}

func TestRunSkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.dcm", "b.txt")
	reader := fakeReader{"a.dcm": instance("S1", "SE1", "I1")}
	s, m := newScanner(t, reader, Options{Workers: 2, SkipUnreadable: true})

	res, err := s.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Placed)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilesSkipped.WithLabelValues("unreadable")))
}

func TestRunCountsConflicts(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.dcm", "b.dcm")
	reader := fakeReader{
		"a.dcm": instance("S1", "SE1", "I1"),
		"b.dcm": instance("S2", "SE1", "I2"),
	}
	s, m := newScanner(t, reader, Options{Workers: 2})

	res, err := s.Run(context.Background(), root)
	require.NoError(t, err)
	study, ok := res.Aggregator.StudyOf("SE1")
	require.True(t, ok)
	assert.Equal(t, "S1", study)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts.WithLabelValues("series")))
}

func TestRunCountsOmittedTags(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.dcm")
	ds := instance("S1", "SE1", "I1")
	ds[rowsKey] = dataset.RawValue{VR: "US", Bytes: []byte{0x01}}
	s, m := newScanner(t, fakeReader{"a.dcm": ds}, Options{})

	res, err := s.Run(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Tree.Studies[0].Series[0].Instances[0].Tags.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TagsOmitted.WithLabelValues("overrun")))
}

func TestRunCancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.dcm")
	s, _ := newScanner(t, fakeReader{"a.dcm": instance("S1", "SE1", "I1")}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Run(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
