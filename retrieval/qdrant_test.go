package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQdrantURL(t *testing.T) {
	cases := []struct {
		name    string
		url     string
		host    string
		port    int
		useTLS  bool
		wantErr bool
	}{
		{"cloud with rest port", "https://xyz.cloud.qdrant.io:6333", "xyz.cloud.qdrant.io", 6334, true, false},
		{"local with rest port", "http://localhost:6333", "localhost", 6334, false, false},
		{"explicit grpc port", "http://localhost:6334", "localhost", 6334, false, false},
		{"custom port kept", "http://qdrant.internal:7001", "qdrant.internal", 7001, false, false},
		{"no port defaults to grpc", "https://qdrant.example.com", "qdrant.example.com", 6334, true, false},
		{"garbage", "not a url", "", 0, false, true},
		{"empty", "", "", 0, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host, port, useTLS, err := parseQdrantURL(tc.url)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.host, host)
			assert.Equal(t, tc.port, port)
			assert.Equal(t, tc.useTLS, useTLS)
		})
	}
}
