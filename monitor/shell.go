package monitor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/peterh/liner"

	"github.com/rcornwell/rv32ima/emu/core"
)

// ConsoleReader drives the shell on the process's own stdin/stdout using
// liner for line editing and history, exactly as the teacher's
// command/reader.ConsoleReader does.
func ConsoleReader(c *core.Core) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		return CompleteCmd(partial)
	})

	for {
		command, err := line.Prompt("rv32ima> ")
		if err == nil {
			line.AppendHistory(command)
			quit, err := ProcessCommand(command, c)
			if err != nil {
				fmt.Println("error: " + err.Error())
			}
			if quit {
				return
			}
			continue
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("monitor: error reading line", "err", err)
		return
	}
}

// Session drives the shell over an arbitrary io.ReadWriter (a remote
// connection), without line editing — liner needs a real terminal, which a
// socket isn't.
func Session(rw io.ReadWriter, c *core.Core) {
	r := newLineReader(rw)
	fmt.Fprint(rw, "rv32ima> ")
	for {
		line, err := r.readLine()
		if err != nil {
			return
		}
		quit, err := ProcessCommand(line, c)
		if err != nil {
			fmt.Fprintln(rw, "error: "+err.Error())
		}
		if quit {
			return
		}
		fmt.Fprint(rw, "rv32ima> ")
	}
}

type lineReader struct {
	r   io.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader { return &lineReader{r: r} }

func (lr *lineReader) readLine() (string, error) {
	for {
		if i := indexByte(lr.buf, '\n'); i >= 0 {
			line := string(lr.buf[:i])
			lr.buf = lr.buf[i+1:]
			return trimCR(line), nil
		}
		b := make([]byte, 256)
		n, err := lr.r.Read(b)
		if n > 0 {
			lr.buf = append(lr.buf, b[:n]...)
		}
		if err != nil {
			if len(lr.buf) > 0 {
				line := string(lr.buf)
				lr.buf = nil
				return trimCR(line), nil
			}
			return "", err
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}
