/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/yandextaxitech/binaryprefs/cmd/binprefs/cmd"

func main() {
	cmd.Execute()
}
