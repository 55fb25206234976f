package main

import (
	"github.com/hypd/urlshortener/cmd"
	_ "github.com/hypd/urlshortener/cmd/cli"
	_ "github.com/hypd/urlshortener/cmd/server"
)

func main() {
	cmd.Execute()
}
