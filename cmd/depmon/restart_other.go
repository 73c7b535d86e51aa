//go:build !unix

package main

import log "github.com/sirupsen/logrus"

func restart() {
	log.Fatal("Restarting is not supported on this platform")
}
