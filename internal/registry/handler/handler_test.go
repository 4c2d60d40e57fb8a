package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"whaled/internal/minttoken"
	"whaled/internal/registry/handler/mocks"
	"whaled/internal/registry/models"
	dErrors "whaled/pkg/domain-errors"
	"whaled/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	tokens  *minttoken.Service
	router  http.Handler
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.tokens = minttoken.NewService("test-signing-key", "whaled-test")

	h := New(s.service, testutil.DiscardLogger(), s.tokens)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) mintRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/tokens/mint", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	token, err := s.tokens.GenerateMinterToken("test-operator", time.Minute)
	require.NoError(s.T(), err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (s *HandlerSuite) TestMint_Success() {
	owner := common.HexToAddress("0x63A9975ba31b0B9626b34300f7F627147df1F526")
	minted := models.Token{ID: 7, Owner: owner, MintedAt: time.Now().UTC()}
	s.service.EXPECT().Mint(gomock.Any(), owner).Return(minted, nil)

	body, _ := json.Marshal(MintRequest{Owner: owner.Hex()})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, s.mintRequest(body))

	require.Equal(s.T(), http.StatusCreated, rec.Code)

	var resp TokenResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(s.T(), uint64(7), resp.TokenID)
	assert.Equal(s.T(), owner.Hex(), resp.Owner)
}

func (s *HandlerSuite) TestMint_MissingToken() {
	body, _ := json.Marshal(MintRequest{Owner: "0x63A9975ba31b0B9626b34300f7F627147df1F526"})
	req := httptest.NewRequest(http.MethodPost, "/tokens/mint", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *HandlerSuite) TestMint_InvalidJSON() {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, s.mintRequest([]byte("not valid json")))

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestMint_ZeroAddressRejected() {
	// Validation happens before the service is reached, so no Mint expectation.
	body, _ := json.Marshal(MintRequest{Owner: "0x0000000000000000000000000000000000000000"})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, s.mintRequest(body))

	require.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(s.T(), string(dErrors.CodeInvalidRecipient), resp["error"])
}

func (s *HandlerSuite) TestMint_MalformedAddress() {
	body, _ := json.Marshal(MintRequest{Owner: "not-an-address"})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, s.mintRequest(body))

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestMint_ServiceInternalError() {
	owner := common.HexToAddress("0x63A9975ba31b0B9626b34300f7F627147df1F526")
	s.service.EXPECT().Mint(gomock.Any(), owner).
		Return(models.Token{}, dErrors.New(dErrors.CodeInternal, "ledger unavailable"))

	body, _ := json.Marshal(MintRequest{Owner: owner.Hex()})
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, s.mintRequest(body))

	require.Equal(s.T(), http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(s.T(), resp["error_description"], "internal errors must not leak details")
}

func (s *HandlerSuite) TestOwnerOf_Success() {
	owner := common.HexToAddress("0x7c42a86e0e4b4e1e3a6f9d62a10f174e0d8cbbbb")
	s.service.EXPECT().OwnerOf(gomock.Any(), models.TokenID(3)).
		Return(models.Token{ID: 3, Owner: owner}, nil)

	req := httptest.NewRequest(http.MethodGet, "/tokens/3/owner", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(s.T(), uint64(3), resp.TokenID)
	assert.Equal(s.T(), owner.Hex(), resp.Owner)
}

func (s *HandlerSuite) TestOwnerOf_NotMinted() {
	s.service.EXPECT().OwnerOf(gomock.Any(), models.TokenID(99)).
		Return(models.Token{}, dErrors.New(dErrors.CodeNotFound, "token not minted"))

	req := httptest.NewRequest(http.MethodGet, "/tokens/99/owner", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *HandlerSuite) TestOwnerOf_BadID() {
	req := httptest.NewRequest(http.MethodGet, "/tokens/abc/owner", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestStats() {
	s.service.EXPECT().TotalMinted(gomock.Any()).Return(uint64(12), nil)

	req := httptest.NewRequest(http.MethodGet, "/tokens/stats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(s.T(), http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(s.T(), json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(s.T(), uint64(12), resp.TotalMinted)
	assert.Equal(s.T(), uint64(12), resp.NextTokenID)
}
