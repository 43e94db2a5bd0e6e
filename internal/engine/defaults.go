package engine

import (
	"fmt"
	"os"

	crerrors "github.com/systmms/confres/internal/errors"
	"gopkg.in/yaml.v3"
)

// LoadDefaultsFile parses the static defaults file: a flat YAML mapping of
// parameter name to value. It is read once at process start and the result
// is immutable thereafter.
//
// A missing file is not an error (no defaults tier); a file that exists but
// cannot be parsed is, because silently dropping the last fallback tier at
// startup would surface much later as confusing NotFound errors.
func LoadDefaultsFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, crerrors.UserError{
			Message:    fmt.Sprintf("Failed to read defaults file %s", path),
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	defaults := make(map[string]string)
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, crerrors.ConfigError{
			Field:      "defaults_file",
			Value:      path,
			Message:    "defaults file is not a flat key-value YAML document",
			Suggestion: "Each line must be 'name: value'. Nested structures are not supported",
		}
	}

	return defaults, nil
}
