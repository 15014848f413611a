package main

import "module-monitor/cmd"

func main() {
	cmd.Execute()
}
