// Package mcp provides the newline-delimited JSON-RPC frame codec the
// gateway's transports and inbound server read and write on.
package mcp

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
)

// UnknownID is the id reported on a JSON-RPC parse error, per the gateway's
// framing contract: a frame that fails to parse has no request id to echo.
const UnknownID = "unknown"

const (
	// initialScanBufSize is the starting size of the line scanner's buffer.
	initialScanBufSize = 64 * 1024
	// maxScanBufSize bounds a single NDJSON line/frame.
	maxScanBufSize = 10 * 1024 * 1024
)

// FrameReader reads newline-delimited JSON-RPC frames from a stream, one
// JSON object per line, UTF-8, '\n'-terminated. Empty lines are skipped.
type FrameReader struct {
	scanner *bufio.Scanner
}

// NewFrameReader wraps r for line-oriented frame reading.
func NewFrameReader(r io.Reader) *FrameReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, initialScanBufSize), maxScanBufSize)
	return &FrameReader{scanner: scanner}
}

// ReadFrame returns the next non-empty line's raw bytes. It returns io.EOF
// when the stream is exhausted. The codec does not interpret the payload
// beyond this point; callers decode it with DecodeMessage.
func (f *FrameReader) ReadFrame() ([]byte, error) {
	for f.scanner.Scan() {
		line := f.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Copy: scanner reuses its buffer on the next Scan.
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}
	if err := f.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// FrameWriter writes newline-delimited JSON-RPC frames to a stream under a
// single mutex-free sequential writer; callers serialize concurrent writers
// themselves (the stdio transport holds a write mutex around this type; the
// gateway server writes from its single Serve loop).
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter wraps w for line-oriented frame writing.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteMessage encodes msg and writes it as one '\n'-terminated line.
func (f *FrameWriter) WriteMessage(msg jsonrpc.Message) error {
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	return f.WriteRaw(data)
}

// WriteRaw writes pre-encoded JSON bytes as one '\n'-terminated line.
func (f *FrameWriter) WriteRaw(data []byte) error {
	if _, err := f.w.Write(data); err != nil {
		return err
	}
	_, err := f.w.Write([]byte("\n"))
	return err
}

// ParseErrorResponse builds a JSON-RPC parse-error response (-32700) for a
// frame that failed to decode. Per the frame codec's contract the id is
// reported as the literal string "unknown" since no request id could be
// recovered.
func ParseErrorResponse(message string) []byte {
	resp := struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      string          `json:"id"`
		Error   jsonRPCErrorObj `json:"error"`
	}{
		JSONRPC: "2.0",
		ID:      UnknownID,
		Error: jsonRPCErrorObj{
			Code:    -32700,
			Message: message,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

type jsonRPCErrorObj struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
