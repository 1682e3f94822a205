// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// OSUbuntu is an Ubuntu base image.
	OSUbuntu OSFamily = "ubuntu"
	// OSDebian is a Debian base image.
	OSDebian OSFamily = "debian"

	namePrefix = "dx-local-install-test"
)

var (
	// ErrInvalidOSFamily is the sentinel wrapped by InvalidOSFamilyError.
	ErrInvalidOSFamily = errors.New("invalid OS family")
	// ErrInvalidIdentity is the sentinel wrapped by InvalidIdentityError.
	ErrInvalidIdentity = errors.New("invalid container identity")
)

type (
	// OSFamily is the distribution of the container base image.
	OSFamily string

	// InvalidOSFamilyError is returned for a family other than ubuntu or debian.
	InvalidOSFamilyError struct {
		Value OSFamily
	}

	// Identity names one component/OS/version combination. Image and container
	// names are derived from it and never stored.
	Identity struct {
		Component string
		OS        OSFamily
		Version   string
	}

	// InvalidIdentityError collects the field errors of an Identity.
	InvalidIdentityError struct {
		Value     Identity
		FieldErrs []error
	}
)

// Error implements the error interface.
func (e *InvalidOSFamilyError) Error() string {
	return fmt.Sprintf("invalid OS family %q (valid: ubuntu, debian)", e.Value)
}

// Unwrap returns ErrInvalidOSFamily.
func (e *InvalidOSFamilyError) Unwrap() error { return ErrInvalidOSFamily }

// String returns the family name.
func (f OSFamily) String() string { return string(f) }

// Validate returns an error for an unknown family.
func (f OSFamily) Validate() error {
	switch f {
	case OSUbuntu, OSDebian:
		return nil
	default:
		return &InvalidOSFamilyError{Value: f}
	}
}

// VersionEnvKey is the compose build variable that selects the base image tag.
func (f OSFamily) VersionEnvKey() string {
	if f == OSDebian {
		return "DEBIAN_VERSION"
	}
	return "UBUNTU_VERSION"
}

// Error implements the error interface.
func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid container identity %s: %v", e.Value, errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidIdentity followed by the field errors.
func (e *InvalidIdentityError) Unwrap() []error {
	return append([]error{ErrInvalidIdentity}, e.FieldErrs...)
}

// Validate checks that every field is set and safe to embed in a name.
func (id Identity) Validate() error {
	var errs []error
	if err := validNamePart("component", id.Component); err != nil {
		errs = append(errs, err)
	}
	if err := id.OS.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := validNamePart("version", id.Version); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidIdentityError{Value: id, FieldErrs: errs}
	}
	return nil
}

// String returns the identity as component-os-version, e.g.
// dx-runtime-ubuntu-24.04.
func (id Identity) String() string {
	return id.Component + "-" + string(id.OS) + "-" + id.Version
}

// ImageName returns dx-local-install-test-<component>-<os>-<version> with
// dots replaced by dashes.
func (id Identity) ImageName() string {
	return dashed(namePrefix + "-" + id.Component + "-" + string(id.OS) + "-" + id.Version)
}

// ContainerName returns dx-local-install-test-<component>-<version> with dots
// replaced by dashes. The OS family is not part of the name, so two families
// with the same version share a container name.
func (id Identity) ContainerName() string {
	return dashed(namePrefix + "-" + id.Component + "-" + id.Version)
}

// VersionDash returns the version with dots replaced by dashes.
func (id Identity) VersionDash() string {
	return dashed(id.Version)
}

func dashed(s string) string {
	return strings.ReplaceAll(s, ".", "-")
}

func validNamePart(field, s string) error {
	if s == "" {
		return fmt.Errorf("%s must be non-empty", field)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
		default:
			return fmt.Errorf("%s %q may only contain lowercase letters, digits, '.', '-' and '_'", field, s)
		}
	}
	return nil
}
