// sparkctl is a CLI client for inspecting a running sparkd daemon.
package main

import "github.com/openr-go/sparkd/cmd/sparkctl/commands"

func main() {
	commands.Execute()
}
