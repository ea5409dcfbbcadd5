package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// pickProgressWriter 选择进度输出位置：只在交互终端启用，优先 stderr（不污染 stdout JSON）。
func pickProgressWriter(stdout, stderr io.Writer) (io.Writer, bool) {
	if isTTY(stderr) {
		return stderr, true
	}
	// 仅重定向 stderr 时 stdout 仍可能是 TTY：退化输出到 stdout。
	if isTTY(stdout) {
		return stdout, true
	}
	return nil, false
}
