package main

import "github.com/mozilla/mozci-go/cmd"

func main() {
	cmd.Execute()
}
