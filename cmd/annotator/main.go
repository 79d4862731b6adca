package main

import "github.com/vietddude/annotator/internal/cli"

func main() {
	cli.Execute()
}
