//go:build unix

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// restart replaces the process with a fresh copy of itself.
func restart() {
	exe, err := os.Executable()
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Restarting %s", exe)
	if err := unix.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Fatalf("Unable to restart: %v", err)
	}
}
