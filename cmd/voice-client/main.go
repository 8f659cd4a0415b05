package main

import "github.com/PreetKumarPanchani/voice-client/internal/bootstrap"

func main() {
	bootstrap.Run()
}
