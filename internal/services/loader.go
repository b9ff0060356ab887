package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vvka-141/graphload/internal/batch"
	"github.com/vvka-141/graphload/internal/csvsource"
	"github.com/vvka-141/graphload/internal/cypher"
	"github.com/vvka-141/graphload/internal/executor"
	"github.com/vvka-141/graphload/internal/labels"
	"github.com/vvka-141/graphload/internal/progress"
	"github.com/vvka-141/graphload/internal/retry"
	"github.com/vvka-141/graphload/internal/schema"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// maxRowWarnings bounds the per-file warnings about rejected rows. The
// remainder are only counted.
const maxRowWarnings = 10

// LoadService runs a complete load: discovery, survey, label validation,
// health check, schema bootstrap, then the node phase followed by the edge
// phase.
//
// Thread-Safety: NOT safe for concurrent Load() calls on the same instance.
type LoadService struct {
	connector graphload.Connector
	logger    graphload.Logger
	sink      graphload.EventSink
}

// NewLoadService creates a LoadService. Panics on nil dependencies.
func NewLoadService(connector graphload.Connector, logger graphload.Logger, sink graphload.EventSink) *LoadService {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if sink == nil {
		panic("sink cannot be nil")
	}
	return &LoadService{connector: connector, logger: logger, sink: progress.Synchronized(sink)}
}

// run carries the state of one Load call.
type run struct {
	cfg      graphload.LoadConfig
	src      graphload.Source
	opts     csvsource.Options
	totals   map[string]int
	resolver *labels.Resolver
	exec     *executor.Executor
	logger   graphload.Logger
	sink     graphload.EventSink
}

// Load reads every node and edge file of src into the graph.
//
// The returned summary is never nil once discovery succeeded, so callers can
// report partial results alongside the error. Errors wrap ErrInvalidConfig,
// ErrInvalidInput, ErrLabelMismatch, ErrConnectionFailed,
// ErrHealthCheckFailed, ErrConnectionLost or ErrLoadIncomplete.
func (s *LoadService) Load(ctx context.Context, src graphload.Source, cfg graphload.LoadConfig) (*graphload.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	summary := &graphload.RunSummary{
		RunID: uuid.NewString(),
		Graph: cfg.Graph,
		Mode:  cfg.Mode,
	}
	defer func() { summary.Elapsed = time.Since(start) }()

	s.logger.Verbose("Run %s: loading %s into graph '%s' (%s mode)", summary.RunID, src, cfg.Graph, cfg.Mode)

	plan, err := csvsource.Discover(ctx, src, csvsource.Filter{Include: cfg.Include, Exclude: cfg.Exclude})
	if err != nil {
		return summary, err
	}
	if len(plan.Nodes) == 0 && len(plan.Edges) == 0 {
		s.logger.Warn("No node or edge files found in %s", src)
		return summary, nil
	}
	s.logger.Info("Found %d node file(s) and %d edge file(s) in %s", len(plan.Nodes), len(plan.Edges), src)

	r := &run{
		cfg:    cfg,
		src:    src,
		opts:   csvsource.Options{Delimiter: cfg.Delimiter},
		totals: make(map[string]int),
		logger: s.logger,
		sink:   s.sink,
	}

	edgeLabels, err := r.survey(ctx, plan)
	if err != nil {
		return summary, err
	}
	if r.resolver, err = s.resolveLabels(plan, edgeLabels, cfg.SkipLabelCheck); err != nil {
		return summary, err
	}

	client, err := s.connector.Connect(ctx)
	if err != nil {
		return summary, err
	}
	defer client.Close()

	if err := CheckHealth(ctx, client, s.logger); err != nil {
		return summary, err
	}

	retryExecutor := retry.NewDefaultExecutor(cfg.Retries).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		s.logger.Warn("Query failed (attempt %d), retrying in %v: %v", attempt, delay, err)
	})

	if cfg.SkipSchema {
		if cfg.Mode == graphload.LoadModeUpsert {
			s.logger.Warn("Upsert mode without id indexes: every MERGE scans its label, expect slow loads")
		}
	} else {
		bootstrapper := schema.NewBootstrapper(client, s.logger, retryExecutor.Classifier())
		if _, err := bootstrapper.Run(ctx, src, plan); err != nil {
			return summary, err
		}
	}

	r.exec = executor.New(client, retryExecutor, s.logger, s.sink)

	phases := []struct {
		files []csvsource.FileSpec
		load  func(context.Context, csvsource.FileSpec) (graphload.FileOutcome, error)
	}{
		{plan.Nodes, r.loadNodes},
		{plan.Edges, r.loadEdges},
	}
	for _, phase := range phases {
		if err := r.runPhase(ctx, summary, phase.files, phase.load); err != nil {
			summary.Aborted = true
			return summary, err
		}
	}

	nodes, edges := summary.Nodes, summary.Edges
	s.logger.Info("Loaded %d/%d nodes and %d/%d edges in %v",
		nodes.Succeeded, nodes.Total(), edges.Succeeded, edges.Total(), time.Since(start).Round(time.Millisecond))
	if failed := summary.Total().Failed; failed > 0 {
		s.logger.Warn("%d record(s) failed to load", failed)
	}
	return summary, nil
}

func (s *LoadService) resolveLabels(plan *csvsource.Plan, edgeLabels []string, skip bool) (*labels.Resolver, error) {
	if skip {
		s.logger.Verbose("Label consistency check skipped")
		return labels.Identity(), nil
	}
	resolver, err := labels.Validate(plan.NodeLabels(), edgeLabels)
	if err != nil {
		return nil, err
	}
	for _, m := range resolver.Mappings() {
		s.logger.Info("Edge label '%s' resolved to node label '%s'", m[0], m[1])
	}
	return resolver, nil
}

// survey counts the records of every file and collects the endpoint labels
// referenced by edge files.
func (r *run) survey(ctx context.Context, plan *csvsource.Plan) ([]string, error) {
	seen := make(map[string]bool)
	var edgeLabels []string
	for _, spec := range plan.Files() {
		sv, err := csvsource.SurveyFile(ctx, r.src, spec, r.opts)
		if err != nil {
			return nil, err
		}
		r.totals[spec.Name] = sv.Records
		for _, l := range sv.Labels {
			if !seen[l] {
				seen[l] = true
				edgeLabels = append(edgeLabels, l)
			}
		}
		r.logger.Verbose("%s: %d record(s)", spec.Name, sv.Records)
	}
	return edgeLabels, nil
}

// runPhase loads files with up to cfg.Parallel in flight. Outcomes are
// recorded in file order for every file that started, even when the phase
// is cut short.
func (r *run) runPhase(ctx context.Context, summary *graphload.RunSummary, files []csvsource.FileSpec,
	load func(context.Context, csvsource.FileSpec) (graphload.FileOutcome, error)) error {
	if len(files) == 0 {
		return nil
	}

	outcomes := make([]*graphload.FileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallel)

	for i, spec := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			fo, err := load(gctx, spec)
			outcomes[i] = &fo
			if err != nil {
				return err
			}
			if r.cfg.FailFast && fo.Outcome.Failed > 0 {
				return fmt.Errorf("%s: %d of %d record(s) failed: %w",
					spec.Name, fo.Outcome.Failed, fo.Outcome.Total(), graphload.ErrLoadIncomplete)
			}
			return nil
		})
	}
	err := g.Wait()

	for _, fo := range outcomes {
		if fo != nil {
			summary.Record(*fo)
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// fileLoad accumulates the outcome of one file.
type fileLoad struct {
	outcome  graphload.FileOutcome
	tracker  *progress.Tracker
	warnings int
	logger   graphload.Logger
}

func (r *run) newFileLoad(spec csvsource.FileSpec) *fileLoad {
	return &fileLoad{
		outcome: graphload.FileOutcome{File: spec.Name, Kind: spec.Kind, Label: spec.Label},
		tracker: progress.NewTracker(r.sink, spec.Name, r.totals[spec.Name], r.cfg.ProgressInterval),
		logger:  r.logger,
	}
}

// reject counts one record that never reaches the database.
func (f *fileLoad) reject(format string, args ...interface{}) {
	f.outcome.Outcome.Failed++
	f.tracker.Advance(1)
	f.warn(format, args...)
}

// warn logs a row-level warning. Rejected and kept-but-suspect rows share
// one budget of maxRowWarnings per file.
func (f *fileLoad) warn(format string, args ...interface{}) {
	f.warnings++
	if f.warnings <= maxRowWarnings {
		f.logger.Warn(format, args...)
	} else if f.warnings == maxRowWarnings+1 {
		f.logger.Warn("%s: further row warnings are suppressed", f.outcome.File)
	}
}

func (f *fileLoad) executed(o graphload.LoadOutcome, records int) {
	f.outcome.Batches++
	f.outcome.Outcome.Add(o)
	f.tracker.Advance(records)
}

func (r *run) loadNodes(ctx context.Context, spec csvsource.FileSpec) (fo graphload.FileOutcome, err error) {
	start := time.Now()
	fl := r.newFileLoad(spec)
	defer func() {
		fo = fl.outcome
		fo.Outcome.Elapsed = time.Since(start)
	}()

	reader, err := csvsource.OpenNodes(ctx, r.src, spec, r.opts)
	if err != nil {
		return fl.outcome, err
	}
	defer reader.Close()

	r.logger.Info("Loading nodes from %s as :%s", spec.Name, spec.Label)
	acc := batch.Unkeyed[cypher.NodeRecord](r.cfg.BatchSize)
	execute := func(b batch.Batch[cypher.NodeRecord, struct{}]) error {
		o, err := r.exec.Execute(ctx, executor.NodeJob(spec.Name, b, r.cfg.Mode))
		fl.executed(o, b.Len())
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return fl.outcome, err
		}
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *csvsource.RowError
		if errors.As(err, &rowErr) {
			fl.reject("Skipping row: %v", rowErr)
			continue
		}
		if err != nil {
			return fl.outcome, err
		}
		for _, b := range acc.Add(rec) {
			if err := execute(b); err != nil {
				return fl.outcome, err
			}
		}
	}
	if b, ok := acc.Flush(); ok {
		if err := execute(b); err != nil {
			return fl.outcome, err
		}
	}

	fl.outcome.Outcome.Elapsed = time.Since(start)
	r.logFile(fl.outcome)
	return fl.outcome, nil
}

func (r *run) loadEdges(ctx context.Context, spec csvsource.FileSpec) (fo graphload.FileOutcome, err error) {
	start := time.Now()
	fl := r.newFileLoad(spec)
	defer func() {
		fo = fl.outcome
		fo.Outcome.Elapsed = time.Since(start)
	}()

	reader, err := csvsource.OpenEdges(ctx, r.src, spec, r.opts)
	if err != nil {
		return fl.outcome, err
	}
	defer reader.Close()

	r.logger.Info("Loading edges from %s as [:%s]", spec.Name, spec.Label)
	acc := batch.New(r.cfg.BatchSize, cypher.EdgeRecord.Key)
	execute := func(b batch.Batch[cypher.EdgeRecord, cypher.EdgeKey]) error {
		o, err := r.exec.Execute(ctx, executor.EdgeJob(spec.Name, b, r.cfg.Mode))
		fl.executed(o, b.Len())
		return err
	}

	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return fl.outcome, err
		}
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var rowErr *csvsource.RowError
		if errors.As(err, &rowErr) {
			fl.reject("Skipping row: %v", rowErr)
			continue
		}
		if err != nil {
			return fl.outcome, err
		}

		if rec.Incomplete() {
			if !r.cfg.KeepIncompleteEdges {
				fl.reject("%s: skipping edge %d with missing endpoint (source=%q, target=%q)",
					spec.Name, row, rec.SourceID, rec.TargetID)
				continue
			}
			fl.warn("%s: sending edge %d with missing endpoint as null (source=%q, target=%q)",
				spec.Name, row, rec.SourceID, rec.TargetID)
		}
		rec.SourceLabelSpec = r.resolver.Resolve(rec.SourceLabelSpec)
		rec.TargetLabelSpec = r.resolver.Resolve(rec.TargetLabelSpec)

		for _, b := range acc.Add(rec) {
			if err := execute(b); err != nil {
				return fl.outcome, err
			}
		}
	}
	if b, ok := acc.Flush(); ok {
		if err := execute(b); err != nil {
			return fl.outcome, err
		}
	}

	fl.outcome.Outcome.Elapsed = time.Since(start)
	r.logFile(fl.outcome)
	return fl.outcome, nil
}

func (r *run) logFile(fo graphload.FileOutcome) {
	o := fo.Outcome
	if o.Failed > 0 {
		r.logger.Warn("%s: %d loaded, %d failed", fo.File, o.Succeeded, o.Failed)
		return
	}
	r.logger.Info("%s: %d %s(s) loaded", fo.File, o.Succeeded, fo.Kind)
}
