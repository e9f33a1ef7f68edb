package main

import (
	"scmem/process"
	"scmem/process_linux"
)

func openLive(pid process.ProcessID) (process.Process, error) {
	return process_linux.Open(pid)
}
