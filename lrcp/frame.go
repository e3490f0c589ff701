package lrcp

import (
	"bytes"
	"fmt"
	"strconv"
)

// FrameType identifies one of the four LRCP message kinds.
type FrameType uint8

const (
	// ConnectFrame opens a session: /connect/SESSION/
	ConnectFrame FrameType = iota + 1
	// DataFrame carries stream bytes at an absolute position: /data/SESSION/POS/DATA/
	DataFrame
	// AckFrame acknowledges the contiguous length received: /ack/SESSION/LENGTH/
	AckFrame
	// CloseFrame requests or confirms session closure: /close/SESSION/
	CloseFrame
)

// String returns the wire keyword of the frame type.
func (t FrameType) String() string {
	switch t {
	case ConnectFrame:
		return "connect"
	case DataFrame:
		return "data"
	case AckFrame:
		return "ack"
	case CloseFrame:
		return "close"
	default:
		return "unknown"
	}
}

// dataHeaderOverhead is the fixed framing of a DATA frame: "/data/", three '/' separators and the closing '/'.
const dataHeaderOverhead = len("/data/") + 3

// Frame is a decoded LRCP message.
//
// Pos and Data are meaningful for DataFrame only, Length for AckFrame only.
type Frame struct {
	Type    FrameType
	Session uint64
	Pos     uint64
	Length  uint64
	Data    []byte
}

// NewConnectFrame returns a CONNECT frame for session.
func NewConnectFrame(session uint64) Frame {
	return Frame{Type: ConnectFrame, Session: session}
}

// NewDataFrame returns a DATA frame carrying data at position pos.
func NewDataFrame(session, pos uint64, data []byte) Frame {
	return Frame{Type: DataFrame, Session: session, Pos: pos, Data: data}
}

// NewAckFrame returns an ACK frame acknowledging length bytes.
func NewAckFrame(session, length uint64) Frame {
	return Frame{Type: AckFrame, Session: session, Length: length}
}

// NewCloseFrame returns a CLOSE frame for session.
func NewCloseFrame(session uint64) Frame {
	return Frame{Type: CloseFrame, Session: session}
}

// Encode returns the wire form of f.
func (f Frame) Encode() []byte {
	return f.AppendEncode(make([]byte, 0, f.EncodedLen()))
}

// EncodedLen returns the exact length of the wire form of f.
func (f Frame) EncodedLen() int {
	n := len(f.Type.String()) + 3 + digits(f.Session)
	switch f.Type {
	case DataFrame:
		n += digits(f.Pos) + 1 + EscapedLen(f.Data) + 1
	case AckFrame:
		n += digits(f.Length) + 1
	}

	return n
}

// AppendEncode appends the wire form of f to dst and returns the extended buffer.
func (f Frame) AppendEncode(dst []byte) []byte {
	dst = append(dst, '/')
	dst = append(dst, f.Type.String()...)
	dst = append(dst, '/')
	dst = strconv.AppendUint(dst, f.Session, 10)
	dst = append(dst, '/')

	switch f.Type {
	case DataFrame:
		dst = strconv.AppendUint(dst, f.Pos, 10)
		dst = append(dst, '/')
		dst = EscapeData(dst, f.Data)
		dst = append(dst, '/')
	case AckFrame:
		dst = strconv.AppendUint(dst, f.Length, 10)
		dst = append(dst, '/')
	}

	return dst
}

// String returns a compact representation of f for logging.
func (f Frame) String() string {
	switch f.Type {
	case DataFrame:
		return fmt.Sprintf("data(session=%d, pos=%d, len=%d)", f.Session, f.Pos, len(f.Data))
	case AckFrame:
		return fmt.Sprintf("ack(session=%d, length=%d)", f.Session, f.Length)
	default:
		return fmt.Sprintf("%s(session=%d)", f.Type, f.Session)
	}
}

// DecodeFrame parses one datagram into a Frame.
//
// Every failure wraps ErrInvalidFrame. The returned frame does not alias b, so the caller
// may reuse its read buffer.
func DecodeFrame(b []byte) (Frame, error) {
	if len(b) < 2 || b[0] != '/' || b[len(b)-1] != '/' {
		return Frame{}, fmt.Errorf("%w: missing leading or trailing '/'", ErrInvalidFrame)
	}

	kind, rest, ok := bytes.Cut(b[1:len(b)-1], []byte{'/'})
	if !ok {
		return Frame{}, fmt.Errorf("%w: missing session field", ErrInvalidFrame)
	}

	switch string(kind) {
	case "connect":
		session, err := parseNumber("session", rest)
		if err != nil {
			return Frame{}, err
		}

		return NewConnectFrame(session), nil

	case "close":
		session, err := parseNumber("session", rest)
		if err != nil {
			return Frame{}, err
		}

		return NewCloseFrame(session), nil

	case "ack":
		sessionField, lengthField, ok := bytes.Cut(rest, []byte{'/'})
		if !ok {
			return Frame{}, fmt.Errorf("%w: ack without length field", ErrInvalidFrame)
		}
		session, err := parseNumber("session", sessionField)
		if err != nil {
			return Frame{}, err
		}
		length, err := parseNumber("length", lengthField)
		if err != nil {
			return Frame{}, err
		}

		return NewAckFrame(session, length), nil

	case "data":
		sessionField, rest, ok := bytes.Cut(rest, []byte{'/'})
		if !ok {
			return Frame{}, fmt.Errorf("%w: data without position field", ErrInvalidFrame)
		}
		posField, payload, ok := bytes.Cut(rest, []byte{'/'})
		if !ok {
			return Frame{}, fmt.Errorf("%w: data without payload field", ErrInvalidFrame)
		}
		session, err := parseNumber("session", sessionField)
		if err != nil {
			return Frame{}, err
		}
		pos, err := parseNumber("position", posField)
		if err != nil {
			return Frame{}, err
		}
		data, err := UnescapeData(payload)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
		}

		return NewDataFrame(session, pos, data), nil

	default:
		return Frame{}, fmt.Errorf("%w: unknown message type %q", ErrInvalidFrame, kind)
	}
}

// SplitData chunks an outbound payload into DATA frames starting at position pos.
//
// Each frame carries at most maxPayload raw bytes, and its encoded form is at most
// maxDatagram bytes. Frame payloads are sub-slices of data.
func SplitData(session, pos uint64, data []byte, maxPayload, maxDatagram int) []Frame {
	frames := make([]Frame, 0, len(data)/maxPayload+1)
	for len(data) > 0 {
		budget := maxDatagram - dataHeaderOverhead - digits(session) - digits(pos)

		n, used := 0, 0
		for n < len(data) && n < maxPayload {
			cost := 1
			if data[n] == '\\' || data[n] == '/' {
				cost = 2
			}
			if used+cost > budget && n > 0 {
				break
			}
			used += cost
			n++
		}

		frames = append(frames, NewDataFrame(session, pos, data[:n]))
		pos += uint64(n)
		data = data[n:]
	}

	return frames
}

// parseNumber parses a non-negative decimal field. Signs, empty fields and leading zeros
// are rejected so that encoding a decoded frame reproduces the original bytes.
func parseNumber(field string, b []byte) (uint64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: empty %s field", ErrInvalidFrame, field)
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: non-numeric %s field %q", ErrInvalidFrame, field, b)
		}
	}
	if len(b) > 1 && b[0] == '0' {
		return 0, fmt.Errorf("%w: leading zero in %s field %q", ErrInvalidFrame, field, b)
	}

	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s field %q out of range", ErrInvalidFrame, field, b)
	}

	return n, nil
}

func digits(n uint64) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}

	return d
}
