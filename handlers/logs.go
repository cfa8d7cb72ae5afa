package handlers

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strconv"
)

const defaultLogLines = 500
const maxLogLines = 5000

// LogsHandler serves the tail of the rotated log file for remote diagnosis.
type LogsHandler struct {
	logFile string
}

func NewLogsHandler(logFile string) *LogsHandler {
	return &LogsHandler{logFile: logFile}
}

// Tail handles GET /api/logs?lines=N, returning the last N log lines as
// plain text.
func (h *LogsHandler) Tail(w http.ResponseWriter, r *http.Request) {
	if h.logFile == "" {
		writeError(w, http.StatusNotFound, "file logging is not enabled")
		return
	}

	n := defaultLogLines
	if raw := r.URL.Query().Get("lines"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "lines must be a positive number")
			return
		}
		n = parsed
	}
	if n > maxLogLines {
		n = maxLogLines
	}

	file, err := os.Open(h.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "no log file yet")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer file.Close()

	lines, err := tailLines(file, n)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, line := range lines {
		w.Write([]byte(line))
		w.Write([]byte("\n"))
	}
}

// tailLines reads the last n lines of file without loading the whole file,
// walking backwards in chunks.
func tailLines(file *os.File, n int) ([]string, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, nil
	}

	const chunkSize = 64 * 1024
	var lines []string
	var leftover []byte
	position := stat.Size()

	for position > 0 && len(lines) < n {
		readSize := int64(chunkSize)
		if position < readSize {
			readSize = position
		}
		position -= readSize

		chunk := make([]byte, readSize)
		if _, err := file.ReadAt(chunk, position); err != nil && err != io.EOF {
			return nil, err
		}
		chunk = append(chunk, leftover...)

		parts := bytes.Split(chunk, []byte("\n"))
		// The first part may be cut mid-line; carry it into the next chunk.
		leftover = parts[0]

		for i := len(parts) - 1; i > 0 && len(lines) < n; i-- {
			line := string(bytes.TrimRight(parts[i], "\r"))
			if line != "" || i != len(parts)-1 {
				lines = append([]string{line}, lines...)
			}
		}
	}

	if len(leftover) > 0 && len(lines) < n {
		lines = append([]string{string(leftover)}, lines...)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
