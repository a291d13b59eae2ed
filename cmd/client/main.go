package main

import "vgsync/cmd/client/cmd"

func main() {
	cmd.Execute()
}
