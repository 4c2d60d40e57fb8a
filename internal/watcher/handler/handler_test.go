package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"whaled/internal/watcher/models"
	dErrors "whaled/pkg/domain-errors"
	"whaled/pkg/testutil"
)

const testAdminToken = "test-admin-token"

// stubService gives handler tests full control over watcher behaviour.
type stubService struct {
	startErr error
	stopErr  error
	status   models.WatchStatus
	logs     []string

	started bool
	stopped bool
}

func (s *stubService) Start(context.Context) error {
	s.started = true
	return s.startErr
}

func (s *stubService) Stop(context.Context) error {
	s.stopped = true
	return s.stopErr
}

func (s *stubService) Status() models.WatchStatus { return s.status }
func (s *stubService) Logs() []string             { return s.logs }

type HandlerSuite struct {
	suite.Suite
	service *stubService
	router  http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{}

	h := New(s.service, testutil.DiscardLogger(), testAdminToken, "")
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) adminRequest(method, path string) *http.Request {
	req := testutil.NewRequest(s.T(), method, path)
	req.Header.Set("X-Admin-Token", testAdminToken)
	return req
}

func (s *HandlerSuite) TestStart_RequiresAdminToken() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/watch/start"))

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	assert.False(s.T(), s.service.started, "service must not be reached without the admin token")
}

func (s *HandlerSuite) TestStart_WrongAdminToken() {
	req := testutil.NewRequest(s.T(), http.MethodPost, "/watch/start")
	req.Header.Set("X-Admin-Token", "wrong")
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
}

func TestHandler_AdminTokenHashGate(t *testing.T) {
	// With only a bcrypt hash configured, the plaintext token in the header
	// must still open the endpoints.
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminToken), bcrypt.MinCost)
	require.NoError(t, err)

	h := New(&stubService{}, testutil.DiscardLogger(), "", string(hash))
	r := chi.NewRouter()
	h.Register(r)

	req := testutil.NewRequest(t, http.MethodGet, "/watch/status")
	req.Header.Set("X-Admin-Token", testAdminToken)
	testutil.AssertStatus(t, testutil.DoRequest(r, req), http.StatusOK)

	wrong := testutil.NewRequest(t, http.MethodGet, "/watch/status")
	wrong.Header.Set("X-Admin-Token", "wrong")
	testutil.AssertStatus(t, testutil.DoRequest(r, wrong), http.StatusUnauthorized)
}

func (s *HandlerSuite) TestStart_Success() {
	s.service.status = models.WatchStatus{Running: true, PollLimit: 3}

	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodPost, "/watch/start"))

	testutil.AssertStatus(s.T(), rr, http.StatusAccepted)
	resp := testutil.UnmarshalResponse[models.WatchStatus](s.T(), rr)
	assert.True(s.T(), resp.Running)
	assert.Equal(s.T(), 3, resp.PollLimit)
}

func (s *HandlerSuite) TestStart_AlreadyRunning() {
	s.service.startErr = dErrors.New(dErrors.CodeConflict, "watch already running")

	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodPost, "/watch/start"))

	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	testutil.AssertErrorCode(s.T(), rr, string(dErrors.CodeConflict))
}

func (s *HandlerSuite) TestStop_Success() {
	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodPost, "/watch/stop"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	require.True(s.T(), s.service.stopped)
}

func (s *HandlerSuite) TestStop_NotRunning() {
	s.service.stopErr = dErrors.New(dErrors.CodeConflict, "watch not running")

	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodPost, "/watch/stop"))

	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
}

func (s *HandlerSuite) TestStatus() {
	s.service.status = models.WatchStatus{Running: false, PollCount: 3, PollLimit: 3}

	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodGet, "/watch/status"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[models.WatchStatus](s.T(), rr)
	assert.False(s.T(), resp.Running)
	assert.Equal(s.T(), 3, resp.PollCount)
}

func (s *HandlerSuite) TestLogs() {
	s.service.logs = []string{"0x63A...526 -> 0x7c4...bbb, value: 2000000"}

	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodGet, "/watch/logs"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[LogsResponse](s.T(), rr)
	require.Len(s.T(), resp.Lines, 1)
}

func (s *HandlerSuite) TestLogs_EmptyIsArray() {
	rr := testutil.DoRequest(s.router, s.adminRequest(http.MethodGet, "/watch/logs"))

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	assert.JSONEq(s.T(), `{"lines":[]}`, rr.Body.String())
}
