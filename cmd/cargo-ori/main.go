package main

import "github.com/oshokin/ori/cmd/cargo-ori/cmd"

func main() {
	cmd.Execute()
}
