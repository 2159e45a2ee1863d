package dates

import (
	"strings"
	"time"
)

// NormalizedDate は、タイムゾーン付きの時刻、または「不明 (absent)」を表す不変の値です。
// ゼロ値は Absent と等価です。
type NormalizedDate struct {
	t  time.Time
	ok bool
}

// Absent は、日付を特定できなかったことを表す値を返します。
func Absent() NormalizedDate {
	return NormalizedDate{}
}

// Of は、t を UTC に正規化した NormalizedDate を返します。
func Of(t time.Time) NormalizedDate {
	return NormalizedDate{t: t.UTC(), ok: true}
}

// Time は正規化された時刻と、それが存在するかどうかを返します。
func (d NormalizedDate) Time() (time.Time, bool) {
	return d.t, d.ok
}

// IsAbsent は日付が不明の場合に true を返します。
func (d NormalizedDate) IsAbsent() bool {
	return !d.ok
}

// ISO8601 は RFC3339 形式の文字列へのポインタを返します。Absent の場合は nil です。
// JSON 出力では nil が null になります。
func (d NormalizedDate) ISO8601() *string {
	if !d.ok {
		return nil
	}
	s := d.t.Format(time.RFC3339)
	return &s
}

// dateLayouts は試行する日付フォーマットの固定リストです。順序に意味があります。
// 最後にゾーン名付きの RFC 822 (parseNamedZone) を試します。
var dateLayouts = []string{
	// RFC 822 (数値オフセット)
	"Mon, 2 Jan 2006 15:04:05 -0700",
	// ISO 8601 (オフセット付き)
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	// オフセットなしの基本形式 (UTC として解釈)
	"2006-01-02 15:04:05",
}

// namedZoneLayout はゾーン名を除いた RFC 822 の日時部分です。
const namedZoneLayout = "Mon, 2 Jan 2006 15:04:05"

// rfc822Zones は RFC 822 で定義されたゾーン名と UTC からのオフセット (時間) です。
var rfc822Zones = map[string]int{
	"UT": 0, "GMT": 0, "Z": 0,
	"EST": -5, "EDT": -4,
	"CST": -6, "CDT": -5,
	"MST": -7, "MDT": -6,
	"PST": -8, "PDT": -7,
}

// Normalize は、優先順に並んだ日付文字列の候補を順に試し、最初に成功した
// (候補, フォーマット) の組の結果を返します。どれも解析できない場合は Absent を返します。
// 副作用はなく、不正な入力でもエラーにはなりません。
func Normalize(candidates []string) NormalizedDate {
	for _, candidate := range candidates {
		s := strings.TrimSpace(candidate)
		if s == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return Of(t)
			}
		}
		if t, ok := parseNamedZone(s); ok {
			return Of(t)
		}
	}
	return Absent()
}

// parseNamedZone は "Mon, 02 Jan 2006 15:04:05 EST" 形式を RFC 822 のゾーン表で解釈します。
// ホストのタイムゾーン設定には依存せず、表にないゾーン名は解析失敗とします。
func parseNamedZone(s string) (time.Time, bool) {
	idx := strings.LastIndexByte(s, ' ')
	if idx < 0 {
		return time.Time{}, false
	}
	zone := strings.ToUpper(s[idx+1:])
	offset, ok := rfc822Zones[zone]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(namedZoneLayout, strings.TrimSpace(s[:idx]), time.FixedZone(zone, offset*60*60))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
