package display

import (
	"bufio"
	"context"
	"io"
	"sync"

	"golang.org/x/term"
)

// input reads answers for input screens. Each read runs on its own goroutine
// so a prompt can give up when its context is cancelled; at most one read is
// in flight, and a line typed after its prompt was abandoned answers the
// next prompt.
type input struct {
	r  *bufio.Reader
	fd int // terminal descriptor for password reads, or -1

	mu      sync.Mutex
	pending chan inputResult
}

type inputResult struct {
	text   string
	err    error
	secret bool
}

func newInput(r io.Reader) *input {
	reader, ok := r.(*bufio.Reader)
	if !ok {
		reader = bufio.NewReader(r)
	}
	return &input{r: reader, fd: inputFd(r)}
}

// readLine returns the next line including its line ending.
func (in *input) readLine(ctx context.Context) (string, error) {
	return in.read(ctx, false)
}

// readPassword reads a line from the terminal without echo. Without a
// terminal it reads a plain line.
func (in *input) readPassword(ctx context.Context) (string, error) {
	return in.read(ctx, in.fd >= 0)
}

func (in *input) read(ctx context.Context, secret bool) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		in.mu.Lock()
		if in.pending == nil {
			in.pending = in.start(secret)
		}
		ch := in.pending
		in.mu.Unlock()

		select {
		case res := <-ch:
			in.mu.Lock()
			in.pending = nil
			in.mu.Unlock()
			// never hand an abandoned password to a plain prompt
			if res.secret && !secret {
				continue
			}
			return res.text, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (in *input) start(secret bool) chan inputResult {
	ch := make(chan inputResult, 1)
	go func() {
		if secret {
			b, err := term.ReadPassword(in.fd)
			ch <- inputResult{text: string(b), err: err, secret: true}
			return
		}
		line, err := in.r.ReadString('\n')
		ch <- inputResult{text: line, err: err}
	}()
	return ch
}
