package main

import "github.com/daixian/dnetpkg/cmd/dnetpkg/internal"

func main() {
	internal.Execute()
}
