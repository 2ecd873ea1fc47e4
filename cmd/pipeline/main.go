package main

import "github.com/user/metroverse-pipeline/cmd/pipeline/commands"

func main() {
	commands.Execute()
}
