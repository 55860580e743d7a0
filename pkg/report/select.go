package report

import (
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/tracecov/pkg/coverage"
)

// SelectOptions filters the files of a model before reporting.
type SelectOptions struct {
	// SkipVendor drops third-party paths such as node_modules/ or vendor/.
	SkipVendor bool
}

// SelectFiles resolves targets against model. With no targets every file is
// selected in name order. Targets that cannot be resolved are returned as
// warnings and skipped.
func SelectFiles(model *coverage.Model, targets []string, opts SelectOptions) ([]*coverage.File, []error) {
	var (
		files    []*coverage.File
		warnings []error
	)

	if len(targets) == 0 {
		files = model.Files()
	} else {
		files, warnings = model.Select(targets)
	}

	if !opts.SkipVendor {
		return files, warnings
	}

	kept := files[:0:0]

	for _, f := range files {
		if enry.IsVendor(f.Name()) {
			continue
		}

		kept = append(kept, f)
	}

	return kept, warnings
}
