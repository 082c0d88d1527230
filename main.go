package main

import "github.com/meysamhadeli/codedoc/cmd"

func main() {
	cmd.Execute()
}
