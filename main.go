package main

import "github.com/trafficast/trafficast/cmd"

func main() {
	cmd.Execute()
}
