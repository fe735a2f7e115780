// Package analyzer compares installed snapshots with catalog versions:
// signer lineage, SDK and ABI compatibility.
package analyzer

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/apkident/internal/catalog"
	"github.com/blackwell-systems/apkident/internal/store"
)

// Analyzer evaluates catalog versions against stored snapshots.
type Analyzer struct {
	store  *store.Store
	device Device
}

// New creates a new Analyzer instance with the given store.
func New(store *store.Store, device Device) *Analyzer {
	return &Analyzer{store: store, device: device}
}

// CheckApp evaluates every catalog version of an installed package.
func (a *Analyzer) CheckApp(idx *catalog.Index, packageName string) (*Report, error) {
	installed, err := a.store.LatestSnapshot(packageName)
	if err != nil {
		return nil, fmt.Errorf("failed to get installed snapshot: %w", err)
	}

	var preferred string
	if app, ok := idx.App(packageName); ok {
		preferred = app.PreferredSigner
	}

	report := &Report{Package: packageName, Installed: installed}
	for _, v := range idx.Versions(packageName) {
		report.Evaluations = append(report.Evaluations, Evaluate(installed, v, preferred, a.device))
	}

	if suggested := idx.Suggested(packageName); suggested != nil {
		for i := range report.Evaluations {
			if report.Evaluations[i].VersionCode == suggested.VersionCode {
				report.Suggested = &report.Evaluations[i]
				break
			}
		}
	}
	return report, nil
}

// CheckAll evaluates every stored package that the catalog publishes.
// Reports are ordered by package name.
func (a *Analyzer) CheckAll(idx *catalog.Index) ([]*Report, error) {
	list, err := a.store.ListSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var reports []*Report
	seen := make(map[string]bool)
	for _, snap := range list {
		if seen[snap.PackageName] {
			continue
		}
		seen[snap.PackageName] = true

		if len(idx.Versions(snap.PackageName)) == 0 {
			continue
		}

		report, err := a.CheckApp(idx, snap.PackageName)
		if errors.Is(err, store.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
