// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package main

import (
	"os"
)

func main() {
	// This is cobra boilerplate documentation, except for the missing call to
	// fmt.Println(err) which in the boilerplate is just plain wrong:
	// it renders the error message twice, see also:
	// https://github.com/spf13/cobra/issues/304
	//
	// We instead silence cobra's own error reporting and report errors in the
	// same tagged style as all other console output.
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		newReporter(rootCmd.ErrOrStderr()).Fatal(err)
		osExit(1)
	}
}

// For CLI unit tests...
var osExit = os.Exit
