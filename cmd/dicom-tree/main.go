package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ikh/dicom-tree/internal/assembler"
	"ikh/dicom-tree/internal/config"
	"ikh/dicom-tree/internal/dataset"
	"ikh/dicom-tree/internal/emit"
	"ikh/dicom-tree/internal/filter"
	"ikh/dicom-tree/internal/logging"
	"ikh/dicom-tree/internal/metrics"
	"ikh/dicom-tree/internal/notify"
	"ikh/dicom-tree/internal/scanner"
	"ikh/dicom-tree/internal/sink"
	"ikh/dicom-tree/internal/tags"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	request, code := parseFlags(args, errOut)
	if request == nil {
		return code
	}

	cfg := config.Default()
	if request.configPath != "" {
		var err error
		cfg, err = config.ReadConfig(request.configPath)
		if err != nil {
			fmt.Fprintf(errOut, "failed to read config %s: %v\n", request.configPath, err)
			return 1
		}
	}
	request.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "%v\nUsage help: dicom-tree -h\n", err)
		return 1
	}

	runID := uuid.NewString()
	logger, err := logging.New(cfg.Log, zap.String("run_id", runID))
	if err != nil {
		fmt.Fprintf(errOut, "failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	m := metrics.New()
	err = execute(ctx, request, cfg, runID, logger, m, out)
	if cfg.MetricsFile != "" {
		if werr := m.WriteFile(cfg.MetricsFile); werr != nil {
			logger.Warn("failed to write metrics", zap.String("path", cfg.MetricsFile), zap.Error(werr))
		}
	}
	if err != nil {
		logger.Error("run failed", zap.Error(err))
		return 1
	}
	return 0
}

func execute(ctx context.Context, request *cliRequest, cfg *config.Config, runID string, logger *zap.Logger, m *metrics.Metrics, out io.Writer) error {
	start := time.Now()
	logger.Info("starting run",
		zap.String("input", cfg.DirectoryPath),
		zap.String("output", cfg.OutputPath),
		zap.String("tags", cfg.TagFile))

	dict, err := tags.LoadFile(cfg.TagFile)
	if err != nil {
		return err
	}
	var keep *filter.Filter
	if cfg.FilterFile != "" {
		if keep, err = filter.LoadFile(cfg.FilterFile); err != nil {
			return err
		}
	}
	if request.checkTags {
		for _, p := range dict.Check() {
			logger.Warn("tag dictionary entry", zap.String("problem", p.String()))
		}
	}

	sc := scanner.New(dataset.FileReader{}, assembler.New(dict), logger, m, scanner.Options{
		Workers:        cfg.WorkerCount(),
		Recursive:      cfg.Recursive,
		SkipUnreadable: cfg.SkipUnreadable,
	})
	res, err := sc.Run(ctx, cfg.DirectoryPath)
	if err != nil {
		return err
	}
	logger.Info("hierarchy built",
		zap.Int("files", res.Files),
		zap.Int("skipped", res.Skipped),
		zap.Int("studies", len(res.Aggregator.UniqueStudyUIDs())),
		zap.Int("series", res.Aggregator.SeriesCount()),
		zap.Int("instances", res.Aggregator.InstanceCount()),
		zap.Int("duplicates", res.Aggregator.Duplicates()))

	tree := res.Tree
	if keep != nil {
		var dropped filter.Dropped
		tree, dropped = keep.Prune(tree)
		m.FilteredOut.WithLabelValues("study").Add(float64(dropped.Studies))
		m.FilteredOut.WithLabelValues("series").Add(float64(dropped.Series))
		m.FilteredOut.WithLabelValues("instance").Add(float64(dropped.Instances))
		logger.Info("tree filtered",
			zap.String("filter", cfg.FilterFile),
			zap.Int("studies_kept", len(tree.Studies)),
			zap.Int("studies_dropped", dropped.Studies),
			zap.Int("series_dropped", dropped.Series),
			zap.Int("instances_dropped", dropped.Instances))
	}

	root := tree.Tree()
	var buf bytes.Buffer
	if err := emit.Serialize(&buf, root); err != nil {
		return err
	}
	if err := write(ctx, cfg, cfg.OutputPath, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("output written", zap.String("path", cfg.OutputPath), zap.Int("bytes", buf.Len()))

	if cfg.CSVPath != "" {
		buf.Reset()
		if err := emit.WriteCSV(&buf, tree, dict); err != nil {
			return err
		}
		if err := write(ctx, cfg, cfg.CSVPath, buf.Bytes()); err != nil {
			return err
		}
		logger.Info("csv written", zap.String("path", cfg.CSVPath))
	}

	if request.print {
		fmt.Fprint(out, emit.SummaryTree(tree))
	}
	if request.dump {
		for line := range emit.Render(root) {
			fmt.Fprintln(out, line)
		}
	}

	if cfg.ApiUrl != "" {
		studies := tree.StudyUIDs()
		n := notify.New(cfg.ApiUrl, time.Duration(cfg.Timeout)*time.Second, runID, cfg.OutputPath)
		if failed := n.NotifyAll(ctx, studies, logger); failed > 0 {
			logger.Warn("some study notifications failed", zap.Int("failed", failed), zap.Int("studies", len(studies)))
		}
	}

	logger.Info("run finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func write(ctx context.Context, cfg *config.Config, path string, data []byte) error {
	s, err := sink.Open(ctx, path, cfg.S3)
	if err != nil {
		return err
	}
	return s.Write(ctx, data)
}
