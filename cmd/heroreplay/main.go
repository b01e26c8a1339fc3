package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/thebagchi/heroreplay/protocol"
)

func main() {
	var (
		filename = flag.String("file", "", "replay.attribute.events sub-stream file")
	)
	flag.Parse()
	if len(*filename) == 0 {
		fmt.Println("Error: ", "input attribute events file required ...")
		os.Exit(1)
	}

	contents, err := os.ReadFile(*filename)
	if err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}

	// Attribute events are the one sub-stream that needs no external
	// schema table, so this is the only decode path a standalone CLI
	// can demonstrate without a caller-supplied protocol.Registry.
	events, err := protocol.DecodeAttributeEvents(contents)
	if err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}

	fmt.Printf("source=%d mapNamespace=%d scopes=%d\n", events.Source, events.MapNamespace, len(events.Scopes))
	for scope, byAttr := range events.Scopes {
		for attrid, records := range byAttr {
			for _, rec := range records {
				fmt.Printf("scope=%d attrid=%d namespace=%d value=%q\n", scope, attrid, rec.Namespace, rec.Value)
			}
		}
	}
}
