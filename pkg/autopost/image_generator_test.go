package autopost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPImageGeneratorReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"https://images.example.com/a.png"}`))
	}))
	defer srv.Close()

	g := NewHTTPImageGenerator(srv.URL, "")
	url, err := g.GenerateImage(context.Background(), "a cat in a hat")
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.com/a.png", url)
}

func TestHTTPImageGeneratorErrorsOnEmptyURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":""}`))
	}))
	defer srv.Close()

	g := NewHTTPImageGenerator(srv.URL, "")
	_, err := g.GenerateImage(context.Background(), "prompt")
	require.Error(t, err)
}

func TestHTTPImageGeneratorErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewHTTPImageGenerator(srv.URL, "")
	_, err := g.GenerateImage(context.Background(), "prompt")
	require.Error(t, err)
}
