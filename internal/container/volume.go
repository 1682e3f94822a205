// SPDX-License-Identifier: MPL-2.0

package container

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SELinuxLabelNone means no SELinux label is applied to the mount.
	SELinuxLabelNone SELinuxLabel = ""
	// SELinuxLabelShared allows sharing the volume between containers.
	SELinuxLabelShared SELinuxLabel = "z"
	// SELinuxLabelPrivate restricts the volume to a single container.
	SELinuxLabelPrivate SELinuxLabel = "Z"
)

var (
	// ErrInvalidVolumeMount is the sentinel wrapped by InvalidVolumeMountError.
	ErrInvalidVolumeMount = errors.New("invalid volume mount")
	// ErrInvalidSELinuxLabel is the sentinel wrapped by InvalidSELinuxLabelError.
	ErrInvalidSELinuxLabel = errors.New("invalid SELinux label")
)

type (
	// SELinuxLabel is a volume relabeling option.
	SELinuxLabel string

	// InvalidSELinuxLabelError is returned for a label other than "", z or Z.
	InvalidSELinuxLabelError struct {
		Value SELinuxLabel
	}

	// VolumeMount is a bind mount of a host path into the container.
	VolumeMount struct {
		HostPath      string
		ContainerPath string
		ReadOnly      bool
		SELinux       SELinuxLabel
	}

	// InvalidVolumeMountError wraps the field errors of a VolumeMount.
	InvalidVolumeMountError struct {
		Value     VolumeMount
		FieldErrs []error
	}
)

// Error implements the error interface.
func (e *InvalidSELinuxLabelError) Error() string {
	return fmt.Sprintf("invalid SELinux label %q (valid: empty, z, Z)", e.Value)
}

// Unwrap returns ErrInvalidSELinuxLabel.
func (e *InvalidSELinuxLabelError) Unwrap() error { return ErrInvalidSELinuxLabel }

// Validate reports whether s is a known label.
func (s SELinuxLabel) Validate() error {
	switch s {
	case SELinuxLabelNone, SELinuxLabelShared, SELinuxLabelPrivate:
		return nil
	default:
		return &InvalidSELinuxLabelError{Value: s}
	}
}

// Error implements the error interface.
func (e *InvalidVolumeMountError) Error() string {
	return fmt.Sprintf("invalid volume mount %s:%s: %v", e.Value.HostPath, e.Value.ContainerPath, errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidVolumeMount followed by the field errors.
func (e *InvalidVolumeMountError) Unwrap() []error {
	return append([]error{ErrInvalidVolumeMount}, e.FieldErrs...)
}

// Validate checks that both paths are set, the container path is absolute and
// the label is known.
func (v VolumeMount) Validate() error {
	var errs []error
	if strings.TrimSpace(v.HostPath) == "" {
		errs = append(errs, errors.New("host path must be non-empty"))
	}
	switch {
	case strings.TrimSpace(v.ContainerPath) == "":
		errs = append(errs, errors.New("container path must be non-empty"))
	case !strings.HasPrefix(v.ContainerPath, "/"):
		errs = append(errs, fmt.Errorf("container path %q must be absolute", v.ContainerPath))
	}
	if err := v.SELinux.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidVolumeMountError{Value: v, FieldErrs: errs}
	}
	return nil
}

// String formats the mount for the -v flag: host:container[:ro[,z]].
func (v VolumeMount) String() string {
	var b strings.Builder
	b.WriteString(v.HostPath)
	b.WriteByte(':')
	b.WriteString(v.ContainerPath)

	var options []string
	if v.ReadOnly {
		options = append(options, "ro")
	}
	if v.SELinux != "" {
		options = append(options, string(v.SELinux))
	}
	if len(options) > 0 {
		b.WriteByte(':')
		b.WriteString(strings.Join(options, ","))
	}
	return b.String()
}

// ParseVolumeMount parses host:container[:options]. Recognized options are
// ro, rw, z and Z; others are ignored.
func ParseVolumeMount(s string) (VolumeMount, error) {
	var mount VolumeMount
	parts := strings.SplitN(s, ":", 3)
	mount.HostPath = parts[0]
	if len(parts) >= 2 {
		mount.ContainerPath = parts[1]
	}
	if len(parts) == 3 {
		for opt := range strings.SplitSeq(parts[2], ",") {
			switch opt {
			case "ro":
				mount.ReadOnly = true
			case "rw":
				mount.ReadOnly = false
			case "z", "Z":
				mount.SELinux = SELinuxLabel(opt)
			}
		}
	}
	if err := mount.Validate(); err != nil {
		return mount, err
	}
	return mount, nil
}
