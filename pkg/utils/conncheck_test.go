//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromDBURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "postgresql://user:pw@dbhost:6543/captures", "dbhost:6543"},
		{"default port", "postgresql://user:pw@dbhost/captures", "dbhost:5432"},
		{"short scheme", "postgres://user@dbhost:5433/captures?sslmode=disable", "dbhost:5433"},
		{"no credentials", "postgresql://dbhost/captures", "dbhost:5432"},
		{"not a db url", "nats://localhost:4222", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromDBURL(tt.url))
		})
	}
}

func TestExtractFromNatsURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"with port", "nats://localhost:4223", "localhost:4223"},
		{"default port", "nats://natshost", "natshost:4222"},
		{"credentials", "nats://user:pw@natshost:4222", "natshost:4222"},
		{"cluster", "nats://a:4222,nats://b:4222", "a:4222"},
		{"tls", "tls://secure", "secure:4222"},
		{"other", "http://localhost", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFromNatsURL(tt.url))
		})
	}
}

func TestWaitForServices(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	ctx := context.Background()
	assert.NoError(t, WaitForServices(ctx, time.Second, l.Addr().String(), ""))

	closed, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := closed.Addr().String()
	closed.Close()
	assert.Error(t, WaitForServices(ctx, 300*time.Millisecond, l.Addr().String(), addr))
}
