// Package replay feeds recorded frame streams into a session. A
// recording is newline-delimited JSON, one frame per line — the format
// the session recorder writes. Follow mode tails a recording that is
// still being written.
package replay

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/buger/jsonparser"
	"github.com/fsnotify/fsnotify"

	"github.com/quillflow/agent-core/protocol"
)

const frameBufferSize = 64

// Source implements session.FrameSource over a frame recording.
type Source struct {
	frames chan protocol.Frame
	err    error // written before frames is closed
}

// Frames returns the ordered frame channel. It is closed when the
// recording is exhausted, errors, or reaches session_end in follow mode.
func (s *Source) Frames() <-chan protocol.Frame { return s.frames }

// Err reports the terminal error, if any, once Frames has closed.
func (s *Source) Err() error { return s.err }

// New reads frames from r until EOF. Blank lines, unknown kinds, and
// malformed lines are skipped with a warning; they never abort replay.
func New(r io.Reader) *Source {
	s := &Source{frames: make(chan protocol.Frame, frameBufferSize)}
	go func() {
		defer close(s.frames)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if frame, ok := parseLine(scanner.Bytes()); ok {
				s.frames <- frame
			}
		}
		s.err = scanner.Err()
	}()
	return s
}

// Tail reads frames from the recording at path and keeps following it
// as it grows, until a session_end frame is read or ctx is cancelled.
func Tail(ctx context.Context, path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		f.Close()
		return nil, err
	}

	s := &Source{frames: make(chan protocol.Frame, frameBufferSize)}
	go s.tail(ctx, f, watcher)
	return s, nil
}

func (s *Source) tail(ctx context.Context, f *os.File, watcher *fsnotify.Watcher) {
	defer close(s.frames)
	defer watcher.Close()
	defer f.Close()

	reader := bufio.NewReader(f)
	var pending bytes.Buffer

	for {
		chunk, err := reader.ReadBytes('\n')
		pending.Write(chunk)

		if err == nil {
			line := pending.Bytes()
			pending.Reset()
			frame, ok := parseLine(line)
			if !ok {
				continue
			}
			select {
			case s.frames <- frame:
			case <-ctx.Done():
				s.err = ctx.Err()
				return
			}
			if frame.Kind() == protocol.FrameKindSessionEnd {
				return
			}
			continue
		}
		if err != io.EOF {
			s.err = err
			return
		}

		// At EOF with the writer still active: wait for growth.
		select {
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			_ = event // any event on the file warrants a re-read
		case werr, ok := <-watcher.Errors:
			if ok && werr != nil {
				s.err = werr
			}
			return
		}
	}
}

// parseLine parses one recording line into a frame. The kind is sniffed
// cheaply before the full unmarshal so arbitrary junk lines are skipped
// without JSON decoding the whole payload.
func parseLine(line []byte) (protocol.Frame, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, false
	}

	if _, err := jsonparser.GetString(line, "kind"); err != nil {
		slog.Warn("skipping recording line without frame kind")
		return nil, false
	}

	frame, err := protocol.ParseFrame(line)
	if err != nil {
		slog.Warn("skipping malformed recording line", "error", err)
		return nil, false
	}
	if frame == nil {
		return nil, false // unknown kind, already logged
	}
	return frame, true
}
