package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"pongarena/server/tools/replaydump"
)

func main() {
	bundle := flag.String("bundle", "", "dump one bundle directory instead of cataloguing the root")
	flag.Parse()

	if *bundle != "" {
		if err := replaydump.Dump(*bundle, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "dump failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	root := flag.Arg(0)
	if root == "" {
		fmt.Fprintln(os.Stderr, "usage: replaydump [-bundle DIR] ROOT")
		os.Exit(2)
	}
	summaries, err := replaydump.Catalog(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog failed: %v\n", err)
		os.Exit(1)
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summaries); err != nil {
		fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
		os.Exit(1)
	}
}
