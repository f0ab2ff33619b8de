package reconcile

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// PreviewAction is what an import would do with a key.
type PreviewAction string

const (
	// ActionCreate means the key is only in the input and would be inserted.
	ActionCreate PreviewAction = "create"
	// ActionSkip means the key is in both input and store and would be skipped.
	ActionSkip PreviewAction = "skip"
	// ActionKeep means the key is only in the store and is left untouched.
	ActionKeep PreviewAction = "keep"
	// ActionPurge means the key is only in the store and a clearing import would delete it.
	ActionPurge PreviewAction = "purge"
)

// PresenceResult describes one natural key of one kind.
type PresenceResult struct {
	Kind    Kind          `json:"kind"`
	Key     string        `json:"key"`
	InInput bool          `json:"in_input"`
	InStore bool          `json:"in_store"`
	Action  PreviewAction `json:"action"`
}

// PreviewCounts aggregates presence results of one kind.
type PreviewCounts struct {
	Create int `json:"create"`
	Skip   int `json:"skip"`
	Keep   int `json:"keep"`
	Purge  int `json:"purge"`
}

// PreviewReport is the dry-run outcome of an import.
type PreviewReport struct {
	Results []PresenceResult        `json:"results"`
	Counts  map[Kind]*PreviewCounts `json:"counts"`
}

// PreviewSpec configures a preview.
type PreviewSpec struct {
	// Sources lists the kinds to preview.
	Sources []IndexSource

	// ClearExisting previews an import that purges the store first:
	// every input key is created and every store key is purged.
	ClearExisting bool

	// Cache optionally serves store indices. May be nil.
	Cache *IndexCache
}

// Preview compares input keys against store keys for every source without
// writing anything. Store indices are loaded concurrently since they are
// independent read-only queries.
func Preview(ctx context.Context, spec *PreviewSpec, db *gorm.DB) (*PreviewReport, error) {
	storeSets := make([]map[string]struct{}, len(spec.Sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range spec.Sources {
		i, src := i, src
		g.Go(func() error {
			keys, err := spec.Cache.Load(gctx, src, db)
			if err != nil {
				return err
			}
			storeSets[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &PreviewReport{
		Results: []PresenceResult{},
		Counts:  make(map[Kind]*PreviewCounts),
	}

	for i, src := range spec.Sources {
		kind := src.Kind()
		counts, ok := report.Counts[kind]
		if !ok {
			counts = &PreviewCounts{}
			report.Counts[kind] = counts
		}

		inputSet := make(map[string]struct{})
		for _, k := range src.InputKeys() {
			if k != "" {
				inputSet[k] = struct{}{}
			}
		}

		union := buildUnion(inputSet, storeSets[i])
		results := make([]PresenceResult, 0, len(union))
		for key := range union {
			results = append(results, buildResult(kind, key, inputSet, storeSets[i], spec.ClearExisting, counts))
		}

		// Sort results by key for deterministic output
		sort.Slice(results, func(a, b int) bool {
			return results[a].Key < results[b].Key
		})
		report.Results = append(report.Results, results...)
	}

	return report, nil
}

// buildUnion creates a union of input and store keys.
func buildUnion(inputSet, storeSet map[string]struct{}) map[string]struct{} {
	union := make(map[string]struct{}, len(inputSet)+len(storeSet))
	for key := range inputSet {
		union[key] = struct{}{}
	}
	for key := range storeSet {
		union[key] = struct{}{}
	}
	return union
}

// buildResult creates the PresenceResult for a single key and updates counts.
func buildResult(kind Kind, key string, inputSet, storeSet map[string]struct{}, clearing bool, counts *PreviewCounts) PresenceResult {
	_, inInput := inputSet[key]
	_, inStore := storeSet[key]

	result := PresenceResult{Kind: kind, Key: key, InInput: inInput, InStore: inStore}

	switch {
	case clearing && inStore:
		// Purged first, then recreated if also in the input
		result.Action = ActionPurge
		counts.Purge++
		if inInput {
			counts.Create++
		}
	case clearing || !inStore:
		result.Action = ActionCreate
		counts.Create++
	case inInput:
		result.Action = ActionSkip
		counts.Skip++
	default:
		result.Action = ActionKeep
		counts.Keep++
	}

	return result
}
