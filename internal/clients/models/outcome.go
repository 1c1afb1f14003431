package models

import "time"

// Outcome is the result of a lookup, a poll or a whole scan that did not fail.
// Failures are reported as errors instead. The set of variants is closed.
type Outcome interface {
	outcome()
}

type Source string

const (
	SourceLookup Source = "lookup"
	SourceUpload Source = "upload"
)

// Found carries a completed report.
type Found struct {
	Result *ScanResult
	Source Source
}

// NotFound means the service has no record of the digest.
type NotFound struct {
	Digest string
}

// Timeout means the submission did not complete before the poll budget ran out.
type Timeout struct {
	DataId   string
	Attempts int
	After    time.Duration
	Progress int
}

func (Found) outcome()    {}
func (NotFound) outcome() {}
func (Timeout) outcome()  {}
