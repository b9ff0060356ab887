package schema

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vvka-141/graphload/internal/csvsource"
	"github.com/vvka-141/graphload/internal/cypher"
	"github.com/vvka-141/graphload/pkg/graphload"
)

// Report counts schema statements by result.
type Report struct {
	Created  int
	Existing int
	Skipped  int
	Failed   int
}

// Add folds other into r.
func (r *Report) Add(other Report) {
	r.Created += other.Created
	r.Existing += other.Existing
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// String renders the counts for logging.
func (r Report) String() string {
	return fmt.Sprintf("%d created, %d existing, %d skipped, %d failed", r.Created, r.Existing, r.Skipped, r.Failed)
}

// Bootstrapper issues index and constraint statements. Statement failures
// are logged and counted; only a lost connection stops it.
type Bootstrapper struct {
	client     graphload.GraphClient
	logger     graphload.Logger
	classifier graphload.ErrorClassifier
}

// NewBootstrapper creates a Bootstrapper.
// Panics if client, logger or classifier is nil.
func NewBootstrapper(client graphload.GraphClient, logger graphload.Logger, classifier graphload.ErrorClassifier) *Bootstrapper {
	if client == nil {
		panic("client cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	return &Bootstrapper{client: client, logger: logger, classifier: classifier}
}

// Run creates id indexes for every node label of the plan, then the
// indexes and constraints declared by the plan's schema files.
func (b *Bootstrapper) Run(ctx context.Context, src graphload.Source, plan *csvsource.Plan) (Report, error) {
	var total Report

	r, err := b.CreateIDIndexes(ctx, plan.NodeLabels())
	total.Add(r)
	if err != nil {
		return total, err
	}

	if plan.HasIndexes {
		defs, skipped, err := readDefinitions(ctx, src, csvsource.IndexesFileName, ParseIndexes)
		if err != nil {
			b.logger.Warn("Ignoring %s: %v", csvsource.IndexesFileName, err)
		} else {
			total.Skipped += skipped
			r, err := b.CreateIndexes(ctx, defs)
			total.Add(r)
			if err != nil {
				return total, err
			}
		}
	}

	if plan.HasConstraints {
		defs, skipped, err := readDefinitions(ctx, src, csvsource.ConstraintsFileName, ParseConstraints)
		if err != nil {
			b.logger.Warn("Ignoring %s: %v", csvsource.ConstraintsFileName, err)
		} else {
			total.Skipped += skipped
			r, err := b.CreateConstraints(ctx, defs)
			total.Add(r)
			if err != nil {
				return total, err
			}
		}
	}

	b.logger.Info("Schema: %s", total)
	return total, nil
}

func readDefinitions[T any](ctx context.Context, src graphload.Source, name string, parse func(io.Reader) ([]T, int, error)) ([]T, int, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	defer rc.Close()
	return parse(rc)
}

// CreateIDIndexes creates an index on the id property of every label.
func (b *Bootstrapper) CreateIDIndexes(ctx context.Context, labels []string) (Report, error) {
	var r Report
	for _, label := range labels {
		if err := b.apply(ctx, &r, "id index on "+label, cypher.IndexStatement(label, csvsource.ColumnID)); err != nil {
			return r, err
		}
	}
	return r, nil
}

// CreateIndexes creates one single-property index per label and property.
func (b *Bootstrapper) CreateIndexes(ctx context.Context, defs []IndexDef) (Report, error) {
	var r Report
	for _, def := range defs {
		for _, label := range def.Labels {
			for _, prop := range def.Properties {
				what := fmt.Sprintf("index on %s.%s", label, prop)
				if err := b.apply(ctx, &r, what, cypher.IndexStatement(label, prop)); err != nil {
					return r, err
				}
			}
		}
	}
	return r, nil
}

// CreateConstraints creates a supporting index and a uniqueness constraint
// for every UNIQUE node constraint. Other constraint kinds are skipped.
func (b *Bootstrapper) CreateConstraints(ctx context.Context, defs []ConstraintDef) (Report, error) {
	var r Report
	creator, native := b.client.(graphload.ConstraintCreator)

	for _, def := range defs {
		if !def.Unique() || !def.OnNodes() {
			b.logger.Warn("Skipping %s constraint on %s %s: only UNIQUE node constraints are supported",
				def.Type, strings.ToLower(def.EntityType), strings.Join(def.Labels, ":"))
			r.Skipped++
			continue
		}

		for _, label := range def.Labels {
			what := fmt.Sprintf("supporting index on %s(%s)", label, strings.Join(def.Properties, ", "))
			if err := b.apply(ctx, &r, what, cypher.IndexStatement(label, def.Properties...)); err != nil {
				return r, err
			}

			what = fmt.Sprintf("unique constraint on %s(%s)", label, strings.Join(def.Properties, ", "))
			var err error
			if native {
				err = creator.CreateUniqueConstraint(ctx, label, def.Properties)
			} else {
				_, err = b.client.Query(ctx, cypher.UniqueConstraintStatement(label, def.Properties...))
			}
			if err := b.settle(ctx, &r, what, err); err != nil {
				return r, err
			}
		}
	}
	return r, nil
}

func (b *Bootstrapper) apply(ctx context.Context, r *Report, what, statement string) error {
	b.logger.Verbose("Schema statement: %s", statement)
	_, err := b.client.Query(ctx, statement)
	return b.settle(ctx, r, what, err)
}

// settle records the result of one statement. It returns an error only
// when the connection is gone.
func (b *Bootstrapper) settle(ctx context.Context, r *Report, what string, err error) error {
	switch {
	case err == nil:
		r.Created++
		b.logger.Verbose("Created %s", what)
	case ctx.Err() != nil:
		return ctx.Err()
	case IsAlreadyExists(err):
		r.Existing++
		b.logger.Verbose("%s already exists", what)
	case b.classifier.IsTransient(err):
		return fmt.Errorf("creating %s: %w: %w", what, graphload.ErrConnectionLost, err)
	default:
		r.Failed++
		b.logger.Warn("Failed to create %s: %v", what, err)
	}
	return nil
}

var alreadyExistsPatterns = []string{
	"already exists",
	"already indexed",
	"equivalent",
	"index exists",
}

// IsAlreadyExists reports whether err says the schema object is already there.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range alreadyExistsPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
