// SPDX-License-Identifier: MPL-2.0

// Package config builds the harness configuration once at process start.
//
// Values are layered with viper: environment variables override an optional
// dxtest.cue file, which overrides DefaultConfig. The CUE file is unified with
// the embedded #Config schema before it is merged, so typos and wrong types
// are reported with their CUE path.
package config
