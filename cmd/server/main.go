package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/hasker/internal/flagx"
	"github.com/dmitrijs2005/hasker/internal/server"
	"github.com/dmitrijs2005/hasker/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// -routes prints the route tree and exits
	if flagx.BoolFlag(os.Args[1:], "routes") {
		doc, err := server.RoutesDoc(cfg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(doc)
		return
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
