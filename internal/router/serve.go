package router

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// maxMessageSize bounds one request line.
const maxMessageSize = 1 << 20

// Serve reads newline-delimited requests from in and writes one response
// line per answered request to out. Searches run concurrently, bounded by
// the configured concurrency; selects run inline so they are placed in
// arrival order. Serve returns when in is exhausted, ctx is done, or a
// write fails.
func (r *Router) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var mu sync.Mutex
	write := func(resp []byte) error {
		if resp == nil {
			return nil
		}
		mu.Lock()
		defer mu.Unlock()
		if _, err := out.Write(append(resp, '\n')); err != nil {
			return err
		}
		return nil
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	var inlineErr error
	for scanner.Scan() {
		if gctx.Err() != nil {
			break
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg := append([]byte(nil), line...)

		if gjson.GetBytes(msg, "type").String() == KindSearch {
			g.Go(func() error {
				return write(r.Handle(gctx, msg))
			})
			continue
		}
		if inlineErr = write(r.Handle(gctx, msg)); inlineErr != nil {
			break
		}
	}

	waitErr := g.Wait()
	switch {
	case inlineErr != nil:
		return inlineErr
	case waitErr != nil:
		return waitErr
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return scanner.Err()
}
