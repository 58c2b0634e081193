package util

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
)

// startCommand 启动外部命令（不等待退出）
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// browserLaunchers 按优先级返回各平台打开 url 的命令，首项为系统默认方式
func browserLaunchers(goos, url string) [][]string {
	switch goos {
	case "windows":
		// rundll32 比 cmd /c start 稳定
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", url},
			{"explorer", url},
		}
	case "darwin":
		return [][]string{{"open", url}}
	case "linux":
		return [][]string{
			{"xdg-open", url},
			{"google-chrome", url},
			{"firefox", url},
			{"chromium-browser", url},
			{"sensible-browser", url},
		}
	}
	return [][]string{{"xdg-open", url}}
}

// OpenBrowser 用系统默认浏览器打开 url
func OpenBrowser(url string) error {
	argv := browserLaunchers(runtime.GOOS, url)[0]
	return startCommand(argv[0], argv[1:]...)
}

// OpenBrowserWithFallback 依次尝试各启动方式，全部失败时返回首个错误
func OpenBrowserWithFallback(url string) error {
	var first error
	for _, argv := range browserLaunchers(runtime.GOOS, url) {
		err := startCommand(argv[0], argv[1:]...)
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
	}
	if first == nil {
		first = errors.New("no browser launcher available")
	}
	return fmt.Errorf("open browser %s: %w", url, first)
}

// FindAvailablePort 从 startPort 开始查找可监听的端口，最多尝试 50 个
func FindAvailablePort(startPort int) int {
	for port := startPort; port < startPort+50; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		_ = ln.Close()
		return port
	}
	return startPort
}
