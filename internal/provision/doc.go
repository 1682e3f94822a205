// SPDX-License-Identifier: MPL-2.0

// Package provision builds and starts the local install test images and
// containers on demand.
//
// Every check asks the container engine again; nothing is cached between
// calls because images and containers may be changed out of band. Ensure
// operations are idempotent: a second call with the same inputs observes the
// existing image or running container and does nothing. There is no locking,
// so callers must not provision the same Identity concurrently.
package provision
