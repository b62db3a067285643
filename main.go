package main

import "ecopark-admin/cmd"

func main() {
	cmd.Run()
}
