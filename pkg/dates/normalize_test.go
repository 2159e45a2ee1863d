package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		candidates []string
		expected   time.Time
		absent     bool
	}{
		{
			name:       "RFC822_数値オフセット",
			candidates: []string{"Mon, 02 Jan 2006 15:04:05 +0900"},
			expected:   time.Date(2006, 1, 2, 6, 4, 5, 0, time.UTC),
		},
		{
			name:       "RFC822_日が1桁",
			candidates: []string{"Tue, 3 Jun 2025 08:00:00 -0500"},
			expected:   time.Date(2025, 6, 3, 13, 0, 0, 0, time.UTC),
		},
		{
			name:       "ISO8601_コロン付きオフセット",
			candidates: []string{"2025-06-03T10:15:30+02:00"},
			expected:   time.Date(2025, 6, 3, 8, 15, 30, 0, time.UTC),
		},
		{
			name:       "ISO8601_Z",
			candidates: []string{"2025-06-03T10:15:30Z"},
			expected:   time.Date(2025, 6, 3, 10, 15, 30, 0, time.UTC),
		},
		{
			name:       "ISO8601_コロンなしオフセット",
			candidates: []string{"2025-06-03T10:15:30+0530"},
			expected:   time.Date(2025, 6, 3, 4, 45, 30, 0, time.UTC),
		},
		{
			name:       "基本形式_UTCとして解釈",
			candidates: []string{"2025-06-03 10:15:30"},
			expected:   time.Date(2025, 6, 3, 10, 15, 30, 0, time.UTC),
		},
		{
			name:       "RFC822_ゾーン名",
			candidates: []string{"Tue, 03 Jun 2025 10:15:30 GMT"},
			expected:   time.Date(2025, 6, 3, 10, 15, 30, 0, time.UTC),
		},
		{
			name:       "RFC822_ゾーン名_EST",
			candidates: []string{"Mon, 02 Jan 2006 15:04:05 EST"},
			expected:   time.Date(2006, 1, 2, 20, 4, 5, 0, time.UTC),
		},
		{
			name:       "RFC822_ゾーン名_PDT",
			candidates: []string{"Mon, 02 Jan 2006 15:04:05 PDT"},
			expected:   time.Date(2006, 1, 2, 22, 4, 5, 0, time.UTC),
		},
		{
			name:       "RFC822_ゾーン名_UT",
			candidates: []string{"Mon, 02 Jan 2006 15:04:05 UT"},
			expected:   time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC),
		},
		{
			name:       "RFC822_ゾーン名_CDT",
			candidates: []string{"Tue, 03 Jun 2025 10:15:30 CDT"},
			expected:   time.Date(2025, 6, 3, 15, 15, 30, 0, time.UTC),
		},
		{
			name:       "RFC822_未知のゾーン名は不明",
			candidates: []string{"Tue, 03 Jun 2025 10:15:30 JST"},
			absent:     true,
		},
		{
			name:       "前後の空白は無視される",
			candidates: []string{"  2025-06-03T10:15:30Z\n"},
			expected:   time.Date(2025, 6, 3, 10, 15, 30, 0, time.UTC),
		},
		{
			name:       "最初に解析できた候補が優先される",
			candidates: []string{"not a date", "2025-06-01T00:00:00Z", "2025-06-02T00:00:00Z"},
			expected:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "空文字列はスキップされる",
			candidates: []string{"", "Tue, 03 Jun 2025 10:15:30 +0000"},
			expected:   time.Date(2025, 6, 3, 10, 15, 30, 0, time.UTC),
		},
		{
			name:       "候補なし",
			candidates: nil,
			absent:     true,
		},
		{
			name:       "未対応の形式は不明になる",
			candidates: []string{"03/06/2025", "June 3rd, 2025", "2025-06-03"},
			absent:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.candidates)
			if tt.absent {
				assert.True(t, got.IsAbsent())
				assert.Nil(t, got.ISO8601())
				return
			}
			actual, ok := got.Time()
			require.True(t, ok, "日付が解析されるべきです")
			assert.True(t, tt.expected.Equal(actual), "期待値: %s, 実際: %s", tt.expected, actual)
			assert.Equal(t, time.UTC, actual.Location())
		})
	}
}

// RFC822 形式の文字列は、time.Parse で独立に解析した結果と同じ瞬間になること。
func TestNormalize_RFC822MatchesIndependentParse(t *testing.T) {
	base := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("JST", 9*60*60),
		time.FixedZone("EST", -5*60*60),
		time.FixedZone("IST", 5*60*60+30*60),
	}

	for i := 0; i < 48; i++ {
		for _, loc := range zones {
			instant := base.Add(time.Duration(i) * 7 * time.Hour).In(loc)
			s := instant.Format(time.RFC1123Z)

			want, err := time.Parse(time.RFC1123Z, s)
			require.NoError(t, err)

			got, ok := Normalize([]string{s}).Time()
			require.True(t, ok, "解析に失敗しました: %s", s)
			assert.True(t, want.Equal(got), "入力: %s", s)
		}
	}
}

func TestNormalize_MalformedNeverPanics(t *testing.T) {
	inputs := []string{
		"", " ", "garbage", "Mon, 32 Jan 2006 15:04:05 +0000", "2025-13-01T00:00:00Z",
		"2025-06-03T25:00:00+00:00", "\x00\xff", "Mon, 02 Jan 2006", "9999999999",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			assert.True(t, Normalize([]string{in}).IsAbsent(), "入力: %q", in)
		})
	}
}

func TestNormalizedDate_ISO8601(t *testing.T) {
	d := Of(time.Date(2025, 6, 3, 19, 0, 0, 0, time.FixedZone("JST", 9*60*60)))
	s := d.ISO8601()
	require.NotNil(t, s)
	assert.Equal(t, "2025-06-03T10:00:00Z", *s)
}
