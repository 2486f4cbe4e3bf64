package store

// Record is the in-memory Download Record of spec.md §3 — the unit
// surfaced to the shell and round-tripped through the Persistence Store.
// Status is modeled as a tagged variant: Failed carries a Reason, the
// other variants leave it empty.
type Record struct {
	ID             string
	URL            string
	FilePath       string
	FileName       string
	TotalSize      *int64
	DownloadedSize int64
	Status         Status
	FailureReason  string
	Cookies        string
	Referrer       string
	UserAgent      string
	CreatedAt      int64
	UpdatedAt      int64
}

// IsTerminal reports whether the record's status is one of the three
// sticky terminal states of spec.md §3.
func (r Record) IsTerminal() bool {
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func toModel(r Record) Download {
	return Download{
		ID:             r.ID,
		URL:            r.URL,
		FilePath:       r.FilePath,
		FileName:       r.FileName,
		TotalSize:      r.TotalSize,
		DownloadedSize: r.DownloadedSize,
		Status:         string(r.Status),
		Cookies:        r.Cookies,
		Referrer:       r.Referrer,
		UserAgent:      r.UserAgent,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// fromModel reconstructs a Record from a stored row. A Failed row never
// carries its original reason (see UnknownReason in internal/rderrors) —
// this is the documented limitation of spec.md §4.A/§9, inherited from the
// original implementation's schema.
func fromModel(d Download, unknownReason string) Record {
	r := Record{
		ID:             d.ID,
		URL:            d.URL,
		FilePath:       d.FilePath,
		FileName:       d.FileName,
		TotalSize:      d.TotalSize,
		DownloadedSize: d.DownloadedSize,
		Status:         Status(d.Status),
		Cookies:        d.Cookies,
		Referrer:       d.Referrer,
		UserAgent:      d.UserAgent,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if r.Status == StatusFailed {
		r.FailureReason = unknownReason
	}
	return r
}
