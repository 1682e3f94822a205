// SPDX-License-Identifier: MPL-2.0

package suite

import (
	"dxtest-cli/internal/provision"
)

const (
	ComponentCompiler = "dx-compiler"
	ComponentModelZoo = "dx-modelzoo"
	ComponentRuntime  = "dx-runtime"
)

// Matrix returns the supported component/OS/version combinations. The
// compiler is built for Ubuntu only.
func Matrix() []provision.Identity {
	var ids []provision.Identity
	for _, v := range []string{"24.04", "22.04", "20.04"} {
		ids = append(ids, provision.Identity{Component: ComponentCompiler, OS: provision.OSUbuntu, Version: v})
	}
	for _, comp := range []string{ComponentModelZoo, ComponentRuntime} {
		for _, v := range []string{"24.04", "22.04", "20.04", "18.04"} {
			ids = append(ids, provision.Identity{Component: comp, OS: provision.OSUbuntu, Version: v})
		}
		for _, v := range []string{"12", "13"} {
			ids = append(ids, provision.Identity{Component: comp, OS: provision.OSDebian, Version: v})
		}
	}
	return ids
}
