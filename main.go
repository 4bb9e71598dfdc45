/*
Copyright 2023 Markus Papenbrock
*/
package main

import "github.com/mpapenbr/sessionreplay/cmd"

func main() {
	cmd.Execute()
}
