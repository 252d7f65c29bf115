package audit

import (
	"context"
	"log/slog"
	"net/http"
)

// Recorder writes audit entries best-effort. A failed insert is logged and
// reported through the return value, but never propagated: a broken audit
// store must not block business operations, and a failed business operation
// must not prevent the audit attempt.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

// NewRecorder creates a Recorder. A nil logger falls back to slog.Default.
func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record appends one audit entry. Returns whether the log write itself
// succeeded. The entry's timestamp is assigned by the repository at insert.
func (rec *Recorder) Record(ctx context.Context, actor *string, ip *uint32, category, subCategory, action string, succeeded bool) bool {
	result := ResultFail
	if succeeded {
		result = ResultSuccess
	}

	entry := Entry{
		Actor:       actor,
		IP:          ip,
		Category:    category,
		SubCategory: subCategory,
		Action:      action,
		Result:      result,
	}

	if _, err := rec.repo.Insert(ctx, entry); err != nil {
		rec.logger.Warn("audit log write failed",
			"error", err,
			"category", category,
			"sub_category", subCategory)
		return false
	}
	return true
}

// RecordRequest is the HTTP-shaped variant of Record: the actor is taken from
// the supplied username (nil for anonymous) and the source IP is extracted
// from the request. Handlers call it in a deferred statement so the entry is
// written on every exit path, success or failure.
func (rec *Recorder) RecordRequest(r *http.Request, actor *string, category, subCategory, action string, succeeded bool) bool {
	return rec.Record(r.Context(), actor, IPToInt(ClientIP(r)), category, subCategory, action, succeeded)
}
