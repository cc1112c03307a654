package builder

import (
	"errors"
	"fmt"

	"github.com/vovakirdan/fmlab/internal/sfm"
)

// Kind classifies build and install failures.
type Kind string

const (
	KindConfig            Kind = "Config"
	KindBaseModMissing    Kind = "BaseModMissing"
	KindDataFileNotFound  Kind = "DataFileNotFound"
	KindDataFileAmbiguous Kind = "DataFileAmbiguous"
	KindDestinationExists Kind = "DestinationExists"
	KindFieldNotFound     Kind = "FieldNotFound"
	KindTableShape        Kind = "TableShape"
	KindIdentityCollision Kind = "IdentityCollision"
	KindUnknownVariant    Kind = "UnknownVariant"
	KindCopy              Kind = "CopyFailed"
	KindPathUnwritable    Kind = "PathUnwritable"
)

// BuildError is returned by Build and Promote.
type BuildError struct {
	Kind    Kind
	Variant string
	Path    string
	Err     error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("build: %s", e.Kind)
	if e.Variant != "" {
		msg += fmt.Sprintf(" (variant %s)", e.Variant)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(": %s", e.Path)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

// InstallError is recorded per variant by Install.
type InstallError struct {
	Kind    Kind
	Variant string
	Path    string
	Err     error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install: %s (variant %s): %s: %v", e.Kind, e.Variant, e.Path, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// contentError maps a data-file layout problem to a BuildError.
func contentError(variant, path string, err error) *BuildError {
	kind := KindFieldNotFound
	var cerr *sfm.ContentError
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case sfm.KindTableShape:
			kind = KindTableShape
		case sfm.KindBadPatch:
			kind = KindConfig
		}
	}
	return &BuildError{Kind: kind, Variant: variant, Path: path, Err: err}
}

// IsKind reports whether err is a BuildError or InstallError of the given kind.
func IsKind(err error, kind Kind) bool {
	var berr *BuildError
	if errors.As(err, &berr) {
		return berr.Kind == kind
	}
	var ierr *InstallError
	if errors.As(err, &ierr) {
		return ierr.Kind == kind
	}
	return false
}
