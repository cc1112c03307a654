package mission

import (
	"errors"
	"fmt"
)

// ErrorKind classifies assembly failures.
type ErrorKind string

const (
	KindDuplicateShortName ErrorKind = "DuplicateShortName"
	KindUnknownProfile     ErrorKind = "UnknownProfile"
	KindInvalidShortName   ErrorKind = "InvalidShortName"
	KindEmptyVariantList   ErrorKind = "EmptyVariantList"
	KindMissingTypeName    ErrorKind = "MissingTypeName"
	KindEmptyProfile       ErrorKind = "EmptyProfile"
	KindNoScenarios        ErrorKind = "NoScenarios"
	KindCrowdedGrid        ErrorKind = "CrowdedGrid"
)

// AssemblyError is returned before any group is placed.
type AssemblyError struct {
	Kind   ErrorKind
	Detail string
}

func (e *AssemblyError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("mission: %s", e.Kind)
	}
	return fmt.Sprintf("mission: %s: %s", e.Kind, e.Detail)
}

// IsKind reports whether err is an AssemblyError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var aerr *AssemblyError
	return errors.As(err, &aerr) && aerr.Kind == kind
}
