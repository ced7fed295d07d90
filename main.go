// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/apporo/app-compression/cmd/appcompress"

func main() {
	cmd.Execute()
}
