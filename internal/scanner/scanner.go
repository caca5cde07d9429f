package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ikh/dicom-tree/internal/assembler"
	"ikh/dicom-tree/internal/dataset"
	"ikh/dicom-tree/internal/decode"
	"ikh/dicom-tree/internal/hierarchy"
	"ikh/dicom-tree/internal/metrics"
	"ikh/dicom-tree/internal/models"
)

type Options struct {
	Workers        int
	Recursive      int
	SkipUnreadable bool
}

type Scanner struct {
	reader    dataset.Reader
	assembler *assembler.Assembler
	logger    *zap.Logger
	metrics   *metrics.Metrics
	opts      Options
}

func New(reader dataset.Reader, asm *assembler.Assembler, logger *zap.Logger, m *metrics.Metrics, opts Options) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Scanner{reader: reader, assembler: asm, logger: logger, metrics: m, opts: opts}
}

type Result struct {
	Tree       *models.OutputTree
	Aggregator *hierarchy.Aggregator
	Files      int
	Placed     int
	Skipped    int
}

type outcome struct {
	record  *models.FileRecord
	omitted []assembler.Omission
	err     error
}

// Run reads every file under directory and builds the tree. Files are
// decoded concurrently but handed to the aggregator in enumeration order,
// so the result does not depend on scheduling. Unless SkipUnreadable is
// set, the run aborts with the error of the unreadable file that comes
// first in enumeration order.
func (s *Scanner) Run(ctx context.Context, directory string) (*Result, error) {
	start := time.Now()
	defer func() { s.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	files, err := Enumerate(directory, s.opts.Recursive)
	if err != nil {
		return nil, err
	}
	s.logger.Info("found candidate files", zap.Int("files", len(files)), zap.String("directory", directory))

	outcomes := make([]outcome, len(files))
	var failed atomic.Int64
	failed.Store(math.MaxInt64)

	// Files are launched in index order, so once a file fails every lower
	// index has already been handed to a worker and is still read.
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for _, f := range files {
		if ctx.Err() != nil || int64(f.Index) > failed.Load() {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil || int64(f.Index) > failed.Load() {
				return nil
			}
			o := s.process(f)
			outcomes[f.Index] = o
			if o.err != nil && errors.Is(o.err, dataset.ErrUnreadable) && !s.opts.SkipUnreadable {
				lowerFailed(&failed, int64(f.Index))
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i := failed.Load(); i != math.MaxInt64 {
		return nil, outcomes[i].err
	}

	agg := hierarchy.New(directory)
	res := &Result{Aggregator: agg, Files: len(files)}
	for i, o := range outcomes {
		s.metrics.FilesScanned.Inc()
		path := files[i].Path
		if o.err != nil {
			res.Skipped++
			s.skip(path, o.err)
			continue
		}
		for _, om := range o.omitted {
			s.metrics.TagsOmitted.WithLabelValues(omissionReason(om.Err)).Inc()
			s.logger.Debug("tag omitted",
				zap.String("file", path),
				zap.String("category", om.Category.String()),
				zap.Stringer("tag", om.Key),
				zap.Error(om.Err))
		}
		for _, c := range agg.Add(o.record) {
			s.metrics.Conflicts.WithLabelValues(c.Level).Inc()
			s.logger.Warn("inconsistent hierarchy", zap.Error(c))
		}
		res.Placed++
		s.metrics.FilesPlaced.Inc()
		s.logger.Debug("file placed", zap.String("file", path), zap.String("instance_uid", o.record.IDs.InstanceUID))
	}

	res.Tree = agg.Build()
	s.metrics.Studies.Set(float64(len(agg.UniqueStudyUIDs())))
	s.metrics.Series.Set(float64(agg.SeriesCount()))
	s.metrics.Instances.Set(float64(agg.InstanceCount()))
	return res, nil
}

func lowerFailed(failed *atomic.Int64, index int64) {
	for {
		cur := failed.Load()
		if index >= cur || failed.CompareAndSwap(cur, index) {
			return
		}
	}
}

func (s *Scanner) process(f File) outcome {
	ds, err := s.reader.Read(f.Path)
	if err != nil {
		if !errors.Is(err, dataset.ErrUnreadable) {
			err = &dataset.ReadError{Path: f.Path, Err: err}
		}
		return outcome{err: err}
	}
	rec, omitted, err := s.assembler.AssembleInstance(f.Path, f.Size, ds)
	if err != nil {
		return outcome{err: fmt.Errorf("%s: %w", f.Path, err)}
	}
	return outcome{record: rec, omitted: omitted}
}

func (s *Scanner) skip(path string, err error) {
	reason := "missing_identifiers"
	if errors.Is(err, dataset.ErrUnreadable) {
		reason = "unreadable"
	}
	s.metrics.FilesSkipped.WithLabelValues(reason).Inc()
	s.logger.Warn("file skipped", zap.String("file", path), zap.String("reason", reason), zap.Error(err))
}

func omissionReason(err error) string {
	switch {
	case errors.Is(err, decode.ErrDecodeOverrun):
		return "overrun"
	case errors.Is(err, decode.ErrSequence):
		return "sequence"
	case errors.Is(err, decode.ErrEmpty):
		return "empty"
	default:
		return "other"
	}
}
