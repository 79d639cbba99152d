package executor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInjectionRisk is returned for values containing characters that could
// alter a command line
var ErrInjectionRisk = errors.New("argument contains unsafe characters")

const unsafeChars = "`;|&$<>\\\"'\n\r\x00"

// ValidateArgument rejects values that contain shell control characters
func ValidateArgument(arg string) error {
	if i := strings.IndexAny(arg, unsafeChars); i >= 0 {
		return fmt.Errorf("%w: %q at offset %d in %q", ErrInjectionRisk, arg[i], i, arg)
	}
	return nil
}

// ValidateArguments validates every non-empty value
func ValidateArguments(args ...string) error {
	for _, a := range args {
		if a == "" {
			continue
		}
		if err := ValidateArgument(a); err != nil {
			return err
		}
	}
	return nil
}
