package main

import (
	"flag"
	"fmt"

	"github.com/hostbridge/signon/internal/config"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	out := fs.String("out", "signon.toml", "where to write the starter config")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.WriteTemplate(*out, *force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}
