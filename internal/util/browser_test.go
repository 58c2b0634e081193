package util

import (
	"errors"
	"fmt"
	"net"
	"runtime"
	"testing"
)

func TestFindAvailablePortSkipsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	busy := ln.Addr().(*net.TCPAddr).Port

	got := FindAvailablePort(busy)
	if got == busy {
		t.Fatalf("expected a port other than busy %d", busy)
	}
	ln2, err := net.Listen("tcp", fmt.Sprintf(":%d", got))
	if err != nil {
		t.Fatalf("returned port %d not available: %v", got, err)
	}
	_ = ln2.Close()
}

func TestBrowserLaunchersDefaultFirst(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{goos: "windows", want: "rundll32"},
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "freebsd", want: "xdg-open"},
	}
	for _, tt := range tests {
		launchers := browserLaunchers(tt.goos, "http://localhost:20262")
		if got := launchers[0][0]; got != tt.want {
			t.Fatalf("%s: first launcher = %s, want %s", tt.goos, got, tt.want)
		}
		for _, argv := range launchers {
			if argv[len(argv)-1] != "http://localhost:20262" {
				t.Fatalf("%s: launcher %v does not end with the url", tt.goos, argv)
			}
		}
	}
}

func TestOpenBrowserWithFallbackTriesNextLauncher(t *testing.T) {
	var tried []string
	orig := startCommand
	t.Cleanup(func() { startCommand = orig })

	launchers := browserLaunchers(runtime.GOOS, "http://localhost:1")
	startCommand = func(name string, args ...string) error {
		tried = append(tried, name)
		if len(tried) < len(launchers) {
			return errors.New("not found")
		}
		return nil
	}
	if err := OpenBrowserWithFallback("http://localhost:1"); err != nil {
		t.Fatalf("expected last launcher to succeed: %v", err)
	}
	if len(tried) != len(launchers) {
		t.Fatalf("tried %v, want %d launchers", tried, len(launchers))
	}

	tried = nil
	startCommand = func(name string, args ...string) error {
		tried = append(tried, name)
		return errors.New("boom")
	}
	if err := OpenBrowserWithFallback("http://localhost:1"); err == nil {
		t.Fatalf("expected error when every launcher fails")
	}
}
