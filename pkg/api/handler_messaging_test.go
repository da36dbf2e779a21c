package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageHandlerRejectsEmptyMessage(t *testing.T) {
	s := &Server{}
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	err := s.sendMessageHandler(c)
	require.Error(t, err)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestStreamConversationHandlerRejectsEmptyMessage(t *testing.T) {
	s := &Server{}
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("conv-1")

	err := s.streamConversationHandler(c)
	require.Error(t, err)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestLegacyConversationsHandlerPanicsOnNilService(t *testing.T) {
	// legacyViewSvc is a required dependency validated by Server.ValidateWiring
	// before Start; the handler itself assumes it is non-nil, matching
	// listConversationsHandler's treatment of messagingSvc.
	s := &Server{}
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.Panics(t, func() {
		_ = s.legacyConversationsHandler(c)
	})
}

func TestSendMessageHandlerRejectsInvalidJSON(t *testing.T) {
	s := &Server{}
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not-json`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := s.sendMessageHandler(c)
	require.Error(t, err)

	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.Code)
}
