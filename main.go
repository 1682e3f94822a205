// SPDX-License-Identifier: MPL-2.0

package main

import "dxtest-cli/cmd/dxtest"

func main() {
	cmd.Execute()
}
