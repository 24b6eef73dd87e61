package main

import "github.com/eratosthenes/geoguess-server/cmd"

func main() {
	cmd.Execute()
}
