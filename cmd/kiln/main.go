// kiln: glaze-combination predictor
//
// Scores how a base glaze, an optional overlay and an optional clear coat
// will fire, keeps a table of correction rules learned from real tiles,
// and draws rough preview swatches. Runs as an MCP server over stdio or
// as a plain command line tool.
//
// Usage:
//
//	kiln serve                               # Start MCP server (stdio transport)
//	kiln predict --base PC-59 --overlay PC-32
//	kiln preview --base PC-59 --overlay PC-32 --out tile.png
//	kiln rules list|save|export
//	kiln experiments list
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
