package chatapi

import (
	"errors"
	"fmt"
)

// ResponseError 表示请求到达了后端，但后端返回了非成功状态码。
type ResponseError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s %s returned status %d: %s", e.Op, e.Method, e.URL, e.StatusCode, string(e.Body))
}

// TransportError 表示请求没有收到任何响应（连接失败、超时、被取消）。
type TransportError struct {
	Op        string
	Method    string
	URL       string
	RequestID string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Op, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError 表示后端返回了成功状态码，但响应体不符合约定的结构。
type MalformedResponseError struct {
	Op     string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Kind 是失败的分类，仅用于诊断日志。
type Kind int

const (
	KindUnknown Kind = iota
	KindResponse
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindResponse:
		return "response"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Classify 判断错误属于哪一类失败。
func Classify(err error) Kind {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return KindResponse
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return KindTransport
	}
	return KindUnknown
}
