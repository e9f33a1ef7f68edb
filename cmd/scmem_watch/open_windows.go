package main

import (
	"scmem/process"
	"scmem/process_windows"
)

func openLive(pid process.ProcessID) (process.Process, error) {
	return process_windows.Open(pid)
}
