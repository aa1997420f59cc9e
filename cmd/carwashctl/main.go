package main

import "github.com/iliyamo/carwash-dashboard/cmd/carwashctl/cmd"

func main() {
	cmd.Execute()
}
