package main

import "github.com/oshokin/edge-alert/cmd/edge-alert/cmd"

func main() {
	cmd.Execute()
}
