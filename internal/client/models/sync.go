package models

import "fmt"

// SyncResult summarizes one sync cycle or phase.
type SyncResult struct {
	Success     bool
	SyncedCount int
	ErrorCount  int
	Total       int
	// Reason is set when the cycle failed as a whole, e.g. common.ErrOffline.
	Reason error
}

// Rejected builds the result of a cycle that did no work.
func Rejected(reason error) SyncResult {
	return SyncResult{Reason: reason}
}

func (r SyncResult) String() string {
	if r.Reason != nil {
		return fmt.Sprintf("sync failed: %v", r.Reason)
	}
	if r.ErrorCount > 0 {
		return fmt.Sprintf("%d errors, %d synced of %d", r.ErrorCount, r.SyncedCount, r.Total)
	}
	return fmt.Sprintf("%d synced of %d", r.SyncedCount, r.Total)
}
