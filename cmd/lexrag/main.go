// Package main is the entry point for the LexRAG legal QA service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	app "github.com/kart-io/lexrag/internal/lexrag"
)

func main() {
	app.NewApp().Run()
}
