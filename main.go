package main

import "github.com/frahmantamala/identity-management/cmd"

func main() {
	cmd.Execute()
}
