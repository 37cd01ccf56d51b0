package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"exact match", []string{"http://localhost:8080"}, "http://localhost:8080", true},
		{"case insensitive", []string{"HTTP://LocalHost:8080"}, "http://localhost:8080", true},
		{"path ignored", []string{"https://chat.example/app"}, "https://chat.example", true},
		{"other port", []string{"http://localhost:8080"}, "http://localhost:9090", false},
		{"other scheme", []string{"http://localhost:8080"}, "https://localhost:8080", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
		{"missing origin", []string{"*"}, "", false},
		{"invalid configured origin", []string{"localhost"}, "http://localhost", false},
		{"nothing configured", nil, "http://localhost:8080", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newOriginPolicy(tt.allowed)
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}

			assert.Equal(t, tt.want, p.checkOrigin(r))
		})
	}
}
