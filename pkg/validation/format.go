// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/calculator-hub/pkg/constants"
)

var outputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatXLSX,
	constants.OutputFormatPDF,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, f := range outputFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %s", strings.Join(outputFormats, ", "), format)
}

// IsBinaryFormat reports whether a schedule export must be written to a file
// rather than a terminal.
func IsBinaryFormat(format string) bool {
	return format == constants.OutputFormatXLSX || format == constants.OutputFormatPDF
}
