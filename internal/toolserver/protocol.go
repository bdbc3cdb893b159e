package toolserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

const jsonrpcVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// maxLineSize bounds a single message.
const maxLineSize = 4 << 20

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// notification reports whether the request carries no id and therefore
// expects no response.
func (r *request) notification() bool {
	return len(r.ID) == 0
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
}

func newRPCError(code int, format string, args ...interface{}) *rpcError {
	return &rpcError{Code: code, Message: fmt.Sprintf(format, args...)}
}

var nullID = json.RawMessage("null")

// Serve reads one JSON-RPC message per line from r and writes one response
// per line to w until r is exhausted or ctx is cancelled. Malformed lines,
// including lines longer than maxLineSize, are answered with a parse error;
// they never stop the loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	in := bufio.NewReaderSize(r, 64*1024)
	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)

	for {
		line, tooLong, readErr := readLine(in)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("read request: %w", readErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var resp *response
		switch {
		case tooLong:
			s.logger.Warn("message exceeds line limit", zap.Int("limit", maxLineSize))
			resp = &response{JSONRPC: jsonrpcVersion, ID: nullID, Error: newRPCError(codeParseError, "Parse error: message too large")}
		case len(bytes.TrimSpace(line)) > 0:
			resp = s.handleLine(ctx, line)
		}
		if resp != nil {
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("write response: %w", err)
			}
			if err := out.Flush(); err != nil {
				return fmt.Errorf("flush response: %w", err)
			}
		}

		if readErr != nil {
			return nil
		}
	}
}

// readLine returns the next line without its newline. A line longer than
// maxLineSize is consumed up to and including its newline and reported as
// tooLong with no content. err is io.EOF once the input is exhausted; line
// may still hold a final unterminated line.
func readLine(in *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		var chunk []byte
		chunk, err = in.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(bytes.TrimSuffix(chunk, []byte("\n"))) > maxLineSize {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			return nil, true, err
		}
		return bytes.TrimSuffix(line, []byte("\n")), false, err
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) *response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		s.logger.Warn("malformed message", zap.Error(err))
		return &response{JSONRPC: jsonrpcVersion, ID: nullID, Error: newRPCError(codeParseError, "Parse error")}
	}
	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		if req.notification() {
			return nil
		}
		return &response{JSONRPC: jsonrpcVersion, ID: req.ID, Error: newRPCError(codeInvalidRequest, "Invalid Request")}
	}

	result, rerr := s.dispatch(ctx, &req)
	if req.notification() {
		return nil
	}
	resp := &response{JSONRPC: jsonrpcVersion, ID: req.ID}
	if rerr != nil {
		resp.Error = rerr
		return resp
	}
	resp.Result = result
	return resp
}
