package protocol

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kbukum/whisper-sidecar/errors"
)

// Success is the response to a completed transcription.
type Success struct {
	Success             bool    `json:"success"`
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
	Segments            int     `json:"segments"`
	Model               string  `json:"model"`
	Duration            float64 `json:"duration"`
}

// Pong is the response to ping.
type Pong struct {
	Pong bool `json:"pong"`
}

// Error is the response to any failed request.
type Error struct {
	Error string `json:"error"`
}

// NewError builds the error response for err.
func NewError(err error) Error {
	return Error{Error: errors.Message(err)}
}

// Writer writes one response per line and flushes each before returning.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write encodes v as a single line and flushes it.
func (w *Writer) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("flush response: %w", err)
	}
	return nil
}

// Reader reads request lines of any length.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024)}
}

// ReadLine returns the next line without its terminator. A final line
// without a newline is returned before io.EOF.
func (r *Reader) ReadLine() ([]byte, error) {
	line, err := r.r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return trimEOL(line), nil
		}
		return nil, err
	}
	return trimEOL(line), nil
}

func trimEOL(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
	}
	if n > 0 && line[n-1] == '\r' {
		n--
	}
	return line[:n]
}
