/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/sarf14/onboarding-tool-sub001/cmd"

func main() {
	cmd.Execute()
}
