// Package sse decodes the server-sent event streams LLM vendors answer with when
// a completion is streamed.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/casualjim/omnichat/pkg/slogx"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

var (
	dataField = []byte("data:")
	done      = []byte("[DONE]")
)

// maxLineSize bounds a single event line.
const maxLineSize = 4 << 20

// Lines yields the payload of every data line read from r, in order. Blank
// lines, comments and the other SSE fields are skipped. The sequence ends at
// EOF or at the [DONE] sentinel; a read error or a done context is yielded once
// and ends it too.
func Lines(ctx context.Context, r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
					if ctxErr := ctx.Err(); ctxErr != nil {
						err = ctxErr
					}
					yield(nil, err)
				}
				return
			}
			payload, ok := dataPayload(scanner.Bytes())
			if !ok {
				continue
			}
			if bytes.Equal(payload, done) {
				return
			}
			// the scanner reuses its buffer
			if !yield(bytes.Clone(payload), nil) {
				return
			}
		}
	}
}

func dataPayload(line []byte) ([]byte, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || !bytes.HasPrefix(line, dataField) {
		return nil, false
	}
	payload := bytes.TrimSpace(line[len(dataField):])
	return payload, len(payload) > 0
}

// Decode yields every data payload of r decoded into T. Payloads that are not
// valid JSON, or that are JSON null, are dropped. When keep is not nil, events
// for which it returns false are dropped as well.
func Decode[T any](ctx context.Context, r io.Reader, keep func(*T) bool) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for payload, err := range Lines(ctx, r) {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !gjson.ValidBytes(payload) || gjson.ParseBytes(payload).Type == gjson.Null {
				slog.DebugContext(ctx, "dropping undecodable stream event", slogx.ByteString("payload", payload))
				continue
			}
			var event T
			if err := json.Unmarshal(payload, &event); err != nil {
				slog.DebugContext(ctx, "dropping undecodable stream event", slogx.ByteString("payload", payload), slogx.Error(err))
				continue
			}
			if keep != nil && !keep(&event) {
				continue
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}
