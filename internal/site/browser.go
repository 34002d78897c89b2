package site

import (
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
)

// OpenBrowser opens the given URL in the default browser.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// FreePort returns the first port in [start, start+span) that host can bind.
// A span of zero or less tries start only.
func FreePort(host string, start, span int) (int, error) {
	if span <= 0 {
		span = 1
	}
	for port := start; port < start+span && port <= 65535; port++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("no free port in %d-%d", start, start+span-1)
}
