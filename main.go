/*
	Copyright 2025 Robotlog contributors
*/

package main

import "github.com/robotlog/replay-service-go/cmd"

func main() {
	cmd.Execute()
}
