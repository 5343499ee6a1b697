// Command gridbook manages typed spreadsheets and serves them over HTTP.
package main

import (
	"context"
	"os"

	"github.com/mesh-intelligence/gridbook/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
