package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_RequiresServiceName(t *testing.T) {
	_, _, err := Init(context.Background(), "", "")
	require.Error(t, err)
}

func TestInit_NoEndpointKeepsHandlerWorking(t *testing.T) {
	shutdown, mw, err := Init(context.Background(), "gophauth", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_WithEndpoint(t *testing.T) {
	shutdown, mw, err := Init(context.Background(), "gophauth", "http://127.0.0.1:4318")
	require.NoError(t, err)
	require.NotNil(t, mw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestExporterOptions(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		wantLen  int
		wantErr  bool
	}{
		{"http with path", "http://collector:4318/custom/v1/traces", 3, false},
		{"https host only", "https://collector:4318", 1, false},
		{"bare host", "collector:4318", 2, false},
		{"bare ip", "127.0.0.1:4318", 2, false},
		{"scheme without host", "http://", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := exporterOptions(tt.endpoint)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, opts, tt.wantLen)
		})
	}
}
