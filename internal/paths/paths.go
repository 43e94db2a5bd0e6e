// Package paths builds and parses the hierarchical keys used by the backing
// store: /{environment}/{application}/{parameter-name}.
//
// Everything here is pure. Validation is deliberately strict: a malformed
// component is a caller bug and is rejected with InvalidPathError rather
// than normalized, because a silently rewritten path could cross an
// environment namespace boundary.
package paths

import (
	"regexp"
	"strings"

	crerrors "github.com/systmms/confres/internal/errors"
)

var componentPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

var segmentPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Build returns the fully qualified key /{environment}/{application}/{name}.
//
// environment and application must match [a-z0-9-]+. name may contain '/'
// to express sub-grouping (for example "database/password") but must not
// contain empty segments, leading or trailing slashes, or "..".
func Build(environment, application, name string) (string, error) {
	if err := validateComponent("environment", environment); err != nil {
		return "", err
	}
	if err := validateComponent("application", application); err != nil {
		return "", err
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return "/" + environment + "/" + application + "/" + name, nil
}

// Prefix returns the namespace prefix /{environment}/{application}/ under
// which all of an application's parameters live.
func Prefix(environment, application string) (string, error) {
	if err := validateComponent("environment", environment); err != nil {
		return "", err
	}
	if err := validateComponent("application", application); err != nil {
		return "", err
	}
	return "/" + environment + "/" + application + "/", nil
}

// NameFromPath strips the environment/application prefix from a full path,
// recovering the parameter name. It is the inverse of Build and is used when
// walking store listings.
func NameFromPath(path, environment, application string) (string, error) {
	prefix, err := Prefix(environment, application)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(path, prefix) {
		return "", crerrors.InvalidPathError{
			Component: "path",
			Value:     path,
			Reason:    "outside namespace " + prefix,
		}
	}
	name := strings.TrimPrefix(path, prefix)
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateName checks a parameter name without building a full path.
func ValidateName(name string) error {
	if name == "" {
		return crerrors.InvalidPathError{Component: "name", Value: name, Reason: "must not be empty"}
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return crerrors.InvalidPathError{Component: "name", Value: name, Reason: "must not have leading or trailing slashes"}
	}
	for _, segment := range strings.Split(name, "/") {
		if segment == "" {
			return crerrors.InvalidPathError{Component: "name", Value: name, Reason: "must not contain empty segments"}
		}
		if segment == ".." || segment == "." {
			return crerrors.InvalidPathError{Component: "name", Value: name, Reason: "must not contain relative segments"}
		}
		if !segmentPattern.MatchString(segment) {
			return crerrors.InvalidPathError{Component: "name", Value: name, Reason: "segment " + segment + " contains invalid characters"}
		}
	}
	return nil
}

// ValidateNamePrefix checks a partial parameter name used for listing. It is
// ValidateName relaxed to allow one trailing slash, so "db/" selects the db
// sub-group.
func ValidateNamePrefix(prefix string) error {
	trimmed := strings.TrimSuffix(prefix, "/")
	if trimmed == "" {
		return crerrors.InvalidPathError{Component: "prefix", Value: prefix, Reason: "must not be empty"}
	}
	return ValidateName(trimmed)
}

func validateComponent(component, value string) error {
	if value == "" {
		return crerrors.InvalidPathError{Component: component, Value: value, Reason: "must not be empty"}
	}
	if !componentPattern.MatchString(value) {
		return crerrors.InvalidPathError{Component: component, Value: value, Reason: "must match [a-z0-9-]+"}
	}
	return nil
}
