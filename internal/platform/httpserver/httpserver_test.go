package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	srv := New(":8080", http.NewServeMux())
	require.NotNil(t, srv)
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 120*time.Second, srv.IdleTimeout)
	assert.Zero(t, srv.ReadTimeout, "slow document uploads must not hit a blanket read deadline")
}

func TestNew_Options(t *testing.T) {
	srv := New(":0", http.NewServeMux(),
		WithReadHeaderTimeout(time.Second),
		WithIdleTimeout(30*time.Second),
	)
	assert.Equal(t, time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 30*time.Second, srv.IdleTimeout)
}
