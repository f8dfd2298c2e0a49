package main

import (
	"storefront/cmd/commands"
	"storefront/config"
)

func main() {
	config.LoadEnv()
	commands.Execute()
}
