package main

import "github.com/KaramelBytes/retail-insights-cli/cmd"

func main() {
	cmd.Execute()
}
