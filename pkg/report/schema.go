package report

import (
	_ "embed"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/report-schema.json
var reportSchema []byte

// Schema returns the JSON schema that WriteJSON output conforms to.
func Schema() []byte {
	return reportSchema
}

// ValidateJSON checks a JSON report against the embedded schema. It returns
// one message per violation; an error means the document could not be
// checked at all.
func ValidateJSON(data []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(reportSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))

	for _, verr := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return violations, nil
}
