// Package main is the entry point for the LexRAG index builder.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/lexrag/cmd/lexrag-indexer/app"
)

func main() {
	app.NewApp().Run()
}
