package main

import "github.com/yuzeguitarist/qrcard/internal/cmd"

func main() {
	cmd.Execute()
}
