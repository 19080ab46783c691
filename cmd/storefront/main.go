package main

import "github.com/aymshop/storefront/cmd"

func main() {
	cmd.Execute()
}
