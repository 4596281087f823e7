// pricefeed-export writes every stored record, in store order, into a
// zstd-compressed JSON-lines snapshot. It opens the store directly and
// must run while the daemon is stopped.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/vjranagit/pricefeed/pkg/storage"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "store data directory")
		out      = flag.String("out", "pricefeed-snapshot.jsonl.zst", "snapshot output file")
		level    = flag.Int("level", 2, "zstd compression level (1-4)")
	)
	flag.Parse()

	store, err := storage.NewStore(&storage.Config{Path: *dataPath})
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	it := store.Records()
	defer it.Close()

	count, err := storage.WriteSnapshot(*out, it, *level)
	if err != nil {
		log.Fatalf("write snapshot: %v", err)
	}

	fmt.Printf("exported %d records to %s\n", count, *out)
}
