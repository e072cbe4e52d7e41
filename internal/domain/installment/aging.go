package installment

import "time"

// AgingBucket classifies how far past due an open debt is. This is the single
// implementation behind installment overdue display, receivable aging and
// payable aging; consumers must not re-derive the thresholds.
type AgingBucket string

const (
	BucketCurrent AgingBucket = "CURRENT" // Settled, or not yet due
	BucketDueSoon AgingBucket = "DUE_SOON"
	Bucket1To30   AgingBucket = "1_30"
	Bucket31To60  AgingBucket = "31_60"
	Bucket61To90  AgingBucket = "61_90"
	Bucket90Plus  AgingBucket = "90_PLUS"
)

// secondsPerDay is the aging granularity; partial days never count.
const secondsPerDay = 86400

// Classify maps a due date and the current time into an aging bucket.
// Terminal statuses always classify as CURRENT regardless of date: a paid
// installment is never overdue.
func Classify(dueDate, now time.Time, status Status) AgingBucket {
	if status.IsTerminal() {
		return BucketCurrent
	}
	return ClassifyOpen(dueDate, now, 0)
}

// ClassifyOpen buckets an open (unsettled) debt by its due date. A positive
// dueSoonWithin marks debts coming due within that window as DUE_SOON, which
// payable reporting uses; pass 0 to disable the sub-bucket.
func ClassifyOpen(dueDate, now time.Time, dueSoonWithin time.Duration) AgingBucket {
	if !dueDate.Before(now) {
		if dueSoonWithin > 0 && dueDate.Sub(now) <= dueSoonWithin {
			return BucketDueSoon
		}
		return BucketCurrent
	}

	daysPast := int(now.Sub(dueDate).Seconds()) / secondsPerDay
	switch {
	case daysPast < 1:
		return BucketCurrent
	case daysPast <= 30:
		return Bucket1To30
	case daysPast <= 60:
		return Bucket31To60
	case daysPast <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// AllBuckets returns the buckets in ascending-severity order, for reports
// that render every column even when empty.
func AllBuckets() []AgingBucket {
	return []AgingBucket{BucketCurrent, BucketDueSoon, Bucket1To30, Bucket31To60, Bucket61To90, Bucket90Plus}
}
