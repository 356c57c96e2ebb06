package datasource

import (
	"context"
	"io"
	"time"

	"github.com/haebom/tariff/internal/domain/policy"
	"github.com/haebom/tariff/internal/domain/reference"
	"github.com/haebom/tariff/pkg/errors"
)

// Paths locate the three dataset documents.  An empty Policy path selects
// the built-in policy document.
type Paths struct {
	Policy   string
	Sections string
	Entries  string
}

// Snapshot is one complete, immutable load of both datasets.
type Snapshot struct {
	Tree      *policy.Tree
	Reference *reference.Dataset
	Version   uint64
	LoadedAt  time.Time
	Source    string
}

// Load reads both datasets from src.  Either dataset failing fails the whole
// load with a LOAD_* error; a partial snapshot is never returned.
func Load(ctx context.Context, src Source, paths Paths, rootLabel string) (*Snapshot, error) {
	tree, err := loadTree(ctx, src, paths.Policy, rootLabel)
	if err != nil {
		return nil, err
	}
	ref, err := loadReference(ctx, src, paths.Sections, paths.Entries)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Tree: tree, Reference: ref, Source: src.Kind()}, nil
}

func loadTree(ctx context.Context, src Source, path, rootLabel string) (*policy.Tree, error) {
	if path == "" {
		return policy.DefaultTree(policy.WithRootLabel(rootLabel))
	}
	rc, err := src.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePolicyLoad, "read policy document").WithDetail(path)
	}
	return policy.LoadTree(data, policy.WithRootLabel(rootLabel))
}

func loadReference(ctx context.Context, src Source, sectionsPath, entriesPath string) (*reference.Dataset, error) {
	if sectionsPath == "" || entriesPath == "" {
		return nil, errors.New(errors.ErrCodeReferenceLoad, "sections and entries paths are required")
	}
	sections, err := src.Open(ctx, sectionsPath)
	if err != nil {
		return nil, err
	}
	defer sections.Close()
	entries, err := src.Open(ctx, entriesPath)
	if err != nil {
		return nil, err
	}
	defer entries.Close()
	return reference.LoadReferenceData(sections, entries)
}
