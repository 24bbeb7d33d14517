package storage

import (
	"testing"

	"storefront/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestPublicBaseURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"endpoint", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "storefront"}, "http://localhost:9000/storefront"},
		{"ssl", config.MinIOConfig{Endpoint: "s3.example.com", Bucket: "b", UseSSL: true}, "https://s3.example.com/b"},
		{"public url", config.MinIOConfig{Endpoint: "minio:9000", Bucket: "b", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com/b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PublicBaseURL(tc.cfg))
		})
	}
}
