// xapi - командная строка для брокерского WebSocket API.
package main

import (
	"fmt"
	"os"
)

// Заполняется через ldflags при сборке.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
