package main

import (
	"flag"
	"log"

	"github.com/danmuck/pktwire/internal/config"
)

func main() {
	kind := flag.String("kind", "node", "config kind: node|client")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	path := *output
	if *validate {
		path = *input
	}
	if path == "" {
		switch *kind {
		case "node":
			path = "cmd/pktnode/config.toml"
		case "client":
			path = "cmd/pktctl/config.toml"
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
	}

	if *validate {
		var err error
		switch *kind {
		case "node":
			_, err = config.LoadNodeConfig(path)
		case "client":
			_, err = config.LoadClientConfig(path)
		default:
			log.Fatalf("unknown kind: %s", *kind)
		}
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated %s config at %s", *kind, path)
		return
	}

	if err := config.WriteTemplate(path, *kind, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %s config template to %s", *kind, path)
}
