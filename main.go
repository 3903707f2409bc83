// SPDX-License-Identifier: MPL-2.0

// univscript runs scripts with configured language runtimes.
package main

import cmd "github.com/univscript/univscript/cmd/univscript"

func main() {
	cmd.Execute()
}
