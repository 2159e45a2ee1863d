package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureScheme(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://news.example.com", "https://news.example.com", false},
		{"http://news.example.com/", "http://news.example.com/", false},
		{"news.example.com", "https://news.example.com", false},
		{"news.example.com:8080/rss", "https://news.example.com:8080/rss", false},
		{"  news.example.com ", "https://news.example.com", false},
		{"ftp://news.example.com", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ensureScheme(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
