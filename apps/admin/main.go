package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/jamii/apps/portal"
	"github.com/trezcool/jamii/core"
)

func main() {
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.LoadConfig(".")
	if err != nil {
		std.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()
	app, err := portal.Build(ctx, conf, std)
	if err != nil {
		std.Fatalf("setting up: %v", err)
	}

	cli := commandLine{app: app}
	err = cli.run(ctx, os.Args[1:], os.Stdout)
	if cerr := app.Close(); cerr != nil {
		std.Printf("closing storage: %v", cerr)
	}
	if err != nil {
		std.Printf("error: %s", err)
		os.Exit(1)
	}
}
