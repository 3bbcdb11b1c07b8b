//go:build windows

package metadata

import (
	"os"
	"syscall"
)

// hidden reads the hidden attribute from the Win32 file attribute data.
func hidden(_ string, info os.FileInfo) bool {
	if data, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return data.FileAttributes&syscall.FILE_ATTRIBUTE_HIDDEN != 0
	}
	return false
}

// system reports files marked with the system attribute.
func system(_ string, info os.FileInfo) bool {
	if data, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return data.FileAttributes&syscall.FILE_ATTRIBUTE_SYSTEM != 0
	}
	return false
}
