package main

import "yqhp/analysis-engine/cmd"

func main() {
	cmd.Execute()
}
