package dates

import (
	"math"
	"time"
)

// DefaultDaysLimit は、許容する日数のデフォルト値です。
const DefaultDaysLimit = 2

// maxWindowDays は time.Duration で表せる最大の日数です。これを超える窓は下限なしとして扱います。
const maxWindowDays = int64(math.MaxInt64 / int64(24*time.Hour))

// WithinWindow は、d が now から daysLimit 日前以降であれば true を返します。
// 下限は境界を含み、未来日付に対する上限チェックは行いません。
// 日付が不明 (Absent) の場合は常に false です。
func WithinWindow(d NormalizedDate, now time.Time, daysLimit int) bool {
	t, ok := d.Time()
	if !ok {
		return false
	}
	if int64(daysLimit) > maxWindowDays {
		return true
	}
	limit := now.Add(-time.Duration(daysLimit) * 24 * time.Hour)
	return !t.Before(limit)
}
