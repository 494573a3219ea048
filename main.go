package main

import "github.com/saadjs/kcaldebt/cmd/kcaldebt"

func main() {
	kcaldebt.Execute()
}
