package dataset

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrInvalidJSON возвращается, если тело ответа не является валидным JSON.
var ErrInvalidJSON = errors.New("dataset response is not valid JSON")

// FetchError — ответ сервера с кодом вне 2xx.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string // Начало тела ответа для диагностики
}

func (e *FetchError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("dataset fetch failed: status %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("dataset fetch failed: status %d from %s, body: %s", e.StatusCode, e.URL, e.Body)
}

// ErrorType представляет тип ошибки при загрузке датасета.
type ErrorType int

const (
	ErrUnknown ErrorType = iota
	ErrTimeout
	ErrNetwork
	ErrHTTPStatus
	ErrDecode
	ErrCanceled
)

// String возвращает строковое представление типа ошибки.
func (e ErrorType) String() string {
	switch e {
	case ErrTimeout:
		return "timeout"
	case ErrNetwork:
		return "network_error"
	case ErrHTTPStatus:
		return "http_status"
	case ErrDecode:
		return "decode_error"
	case ErrCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// HumanMessage возвращает человекочитаемое сообщение для типа ошибки.
func (e ErrorType) HumanMessage() string {
	switch e {
	case ErrTimeout:
		return "The dataset server did not answer in time. Try again or raise dataset.timeout."
	case ErrNetwork:
		return "The dataset server is unreachable. Check the network connection and dataset.url."
	case ErrHTTPStatus:
		return "The dataset server returned an error status. Check dataset.url and the WFS parameters."
	case ErrDecode:
		return "The dataset server answered with something that is not JSON. Check dataset.output_format."
	case ErrCanceled:
		return "Fetching the dataset was canceled."
	default:
		return "Unknown error while fetching the dataset."
	}
}

// ClassifyError определяет тип ошибки загрузки.
//
// Сначала проверяет типизированные ошибки (FetchError, ErrInvalidJSON,
// net.Error, context), затем текст ошибки.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrUnknown
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return ErrHTTPStatus
	}
	if errors.Is(err, ErrInvalidJSON) {
		return ErrDecode
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return ErrNetwork
	}

	errMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errMsg, "timeout"), strings.Contains(errMsg, "deadline exceeded"):
		return ErrTimeout
	case strings.Contains(errMsg, "connection refused"),
		strings.Contains(errMsg, "no such host"),
		strings.Contains(errMsg, "connection reset"):
		return ErrNetwork
	}

	if errors.As(err, &urlErr) {
		return ErrNetwork
	}

	return ErrUnknown
}
