package reactor

import (
	"fmt"

	"github.com/rajinisivaram/reactor-core/core"
)

// validateOptions rejects invalid operator configuration eagerly, at
// construction time.
func validateOptions[R any](o *options[R]) error {
	if o.maxConcurrency < 1 {
		return core.ConfigurationError{
			Option: "maxConcurrency",
			Reason: fmt.Sprintf("must be at least 1, got %d", o.maxConcurrency),
		}
	}
	if o.prefetch < 1 {
		return core.ConfigurationError{
			Option: "prefetch",
			Reason: fmt.Sprintf("must be at least 1, got %d", o.prefetch),
		}
	}
	return nil
}
