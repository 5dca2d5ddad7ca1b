package main

import "github.com/jaeha-choi/s3keep/cmd/s3keep/cmd"

func main() {
	cmd.Execute()
}
