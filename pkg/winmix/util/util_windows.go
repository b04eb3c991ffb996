package util

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// GetProcessPath returns the full path to the main executable module of the
// given process ID. Opening the process needs query-information and VM-read
// rights; either can be denied for a higher-privilege process, in which case
// the error is returned and callers are expected to carry on without a path.
func GetProcessPath(pid int) (string, error) {
	handle, err := windows.OpenProcess(
		windows.PROCESS_QUERY_INFORMATION|windows.PROCESS_VM_READ,
		false,
		uint32(pid),
	)
	if err != nil {
		return "", fmt.Errorf("open process %d: %w", pid, err)
	}
	defer windows.CloseHandle(handle)

	var buffer [windows.MAX_PATH]uint16
	if err := windows.GetModuleFileNameEx(handle, 0, &buffer[0], uint32(len(buffer))); err != nil {
		return "", fmt.Errorf("get module filename for %d: %w", pid, err)
	}

	// UTF16ToString stops at the first NUL, which drops the buffer's trailing padding
	return windows.UTF16ToString(buffer[:]), nil
}
