// Command roster manages student records in a SQLite database.
package main

import (
	"os"

	"github.com/roach88/roster/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
