//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"scmem/process"
)

var (
	modntdll                     = windows.NewLazySystemDLL("ntdll.dll")
	procNtQueryInformationThread = modntdll.NewProc("NtQueryInformationThread")
)

const (
	threadBasicInformation = 0      // THREADINFOCLASS ThreadBasicInformation
	threadQueryInformation = 0x0040 // THREAD_QUERY_INFORMATION
)

type clientID struct {
	UniqueProcess uintptr
	UniqueThread  uintptr
}

// threadBasicInfo mirrors THREAD_BASIC_INFORMATION.
type threadBasicInfo struct {
	ExitStatus     int32
	TebBaseAddress uintptr
	ClientID       clientID
	AffinityMask   uintptr
	Priority       int32
	BasePriority   int32
}

// Threads snapshots the target's threads in Toolhelp enumeration order and resolves each TEB.
// Threads that exit between the snapshot and the query are skipped.
func (p *WindowsProcess) Threads() ([]process.Thread, error) {
	pid := uint32(p.GetPID())
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPTHREAD, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snapshot)

	var te windows.ThreadEntry32
	te.Size = uint32(unsafe.Sizeof(te))
	if err = windows.Thread32First(snapshot, &te); err != nil {
		return nil, fmt.Errorf("Thread32First: %w", err)
	}

	var threads []process.Thread
	for {
		if te.OwnerProcessID == pid {
			teb, err := threadTeb(te.ThreadID)
			if err != nil {
				p.log.Debugln("Skipping thread", te.ThreadID, err)
			} else {
				threads = append(threads, process.Thread{
					ThreadID:       te.ThreadID,
					TebBaseAddress: teb,
					Index:          len(threads),
				})
			}
		}

		if err = windows.Thread32Next(snapshot, &te); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return nil, fmt.Errorf("Thread32Next: %w", err)
		}
	}

	return threads, nil
}

func threadTeb(threadID uint32) (process.ProcessMemoryAddress, error) {
	th, err := windows.OpenThread(threadQueryInformation, false, threadID)
	if err != nil {
		return 0, fmt.Errorf("OpenThread(%d): %w", threadID, err)
	}
	defer windows.CloseHandle(th)

	var info threadBasicInfo
	status, _, _ := procNtQueryInformationThread.Call(
		uintptr(th),
		threadBasicInformation,
		uintptr(unsafe.Pointer(&info)),
		unsafe.Sizeof(info),
		0,
	)
	if status != 0 {
		return 0, fmt.Errorf("NtQueryInformationThread(%d): NTSTATUS 0x%x", threadID, status)
	}
	if info.TebBaseAddress == 0 {
		return 0, process.ErrThreadBaseUnavailable
	}
	return process.ProcessMemoryAddress(info.TebBaseAddress), nil
}
