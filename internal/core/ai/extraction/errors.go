package extraction

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Kind 擷取失敗的類型
type Kind string

const (
	KindUnavailable      Kind = "unavailable"
	KindTimedOut         Kind = "timedOut"
	KindRateLimited      Kind = "rateLimited"
	KindMalformedPayload Kind = "malformedPayload"
	KindQuotaExceeded    Kind = "quotaExceeded"
)

// ErrMalformedResponse 擷取服務回應無法解讀（缺少內容、格式錯誤）
var ErrMalformedResponse = errors.New("malformed extraction response")

// Error 擷取錯誤；只影響該切塊，不會中止整個匯入
type Error struct {
	Kind       Kind
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("extraction %s", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind 判斷錯誤鏈中是否有指定類型的擷取錯誤
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// KindOf 取出錯誤類型，非擷取錯誤回傳空字串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusError 擷取服務回傳非 200 狀態碼
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("extraction service returned status %d: %s", e.StatusCode, e.Body)
}

// classify 將供應商錯誤轉為擷取錯誤類型
func classify(err error) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		kind := KindUnavailable
		switch {
		case statusErr.StatusCode == http.StatusPaymentRequired:
			kind = KindQuotaExceeded
		case statusErr.StatusCode == http.StatusTooManyRequests && isQuotaMessage(statusErr.Body):
			kind = KindQuotaExceeded
		case statusErr.StatusCode == http.StatusTooManyRequests:
			kind = KindRateLimited
		case statusErr.StatusCode == http.StatusRequestTimeout, statusErr.StatusCode == http.StatusGatewayTimeout:
			kind = KindTimedOut
		}
		return &Error{Kind: kind, StatusCode: statusErr.StatusCode, Err: err}
	}

	if errors.Is(err, ErrMalformedResponse) {
		return &Error{Kind: KindMalformedPayload, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimedOut, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimedOut, Err: err}
	}

	return &Error{Kind: KindUnavailable, Err: err}
}

// isQuotaMessage 判斷 429 是否為額度耗盡（而非短期限流）
func isQuotaMessage(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "quota") &&
		(strings.Contains(lower, "exceeded") || strings.Contains(lower, "exhausted"))
}
