// Package audit provides the append-only audit trail recording every mutating
// operation and every login attempt, for compliance and traceability.
package audit

import (
	"time"
)

// Result is the outcome of an audited action.
type Result int

// Audit results.
const (
	ResultFail    Result = 0
	ResultSuccess Result = 1
)

// Display strings for results, as rendered in list responses.
const (
	resultFailDisplay    = "실패"
	resultSuccessDisplay = "성공"
)

// String returns the display form of the result.
func (r Result) String() string {
	if r == ResultSuccess {
		return resultSuccessDisplay
	}
	return resultFailDisplay
}

// ParseResult maps a display string back to a Result. The second return value
// reports whether the input was recognized.
func ParseResult(s string) (Result, bool) {
	switch s {
	case resultSuccessDisplay:
		return ResultSuccess, true
	case resultFailDisplay:
		return ResultFail, true
	}
	return ResultFail, false
}

// Entry is a single audit trail record. Entries are append-only: they are
// never updated or deleted by the application, and are ordered by ID
// ascending for display.
type Entry struct {
	ID          int64
	Actor       *string // username, nil for anonymous attempts
	IP          *uint32 // IPv4 as integer, nil when unparsable
	Category    string
	SubCategory string
	Action      string
	Result      Result
	Date        time.Time // server-assigned at insert, immutable
}

// Audit categories and sub-categories.
const (
	CategoryAccount     = "계정"
	CategoryAccountMgmt = "계정 관리"
	CategoryBankAccount = "계좌번호 관리"
	CategoryNote        = "노트 관리"
	CategorySerial      = "시리얼 번호 관리"
	CategoryGuestBook   = "결혼식 방명록"

	SubCategoryLogin = "로그인"
	SubCategoryUsers = "사용자 관리"
	SubCategoryNone  = "-"
)
