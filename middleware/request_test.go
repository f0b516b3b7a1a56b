package middleware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasguard/internal/testutil"
	"github.com/erraggy/oasguard/middleware"
	"github.com/erraggy/oasguard/oaserrors"
	"github.com/erraggy/oasguard/schemavalidator"
	"github.com/erraggy/oasguard/spec"
)

// spyHandler records whether it ran and what bag it saw.
type spyHandler struct {
	called bool
	bag    *schemavalidator.Bag
	body   string
}

func (s *spyHandler) HandlerFunc() middleware.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		s.called = true
		s.bag, _ = middleware.BagFromContext(r.Context())
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			s.body = string(data)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
		return nil
	}
}

func loadDoc(t *testing.T) *spec.Document {
	t.Helper()
	return testutil.LoadDocument(t, testutil.PetstoreV3)
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) middleware.ErrorBody {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body middleware.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ===== Request Policy Tests =====

func TestRequestValid(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t))
	require.NoError(t, err)

	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	const body = `{"string":"s","integer":1}`
	err = mw.Wrap(spy.HandlerFunc())(rec, jsonRequest(http.MethodPost, "/validate?flag=true", body))
	require.NoError(t, err)

	assert.True(t, spy.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, body, spy.body, "the inner handler can re-read the body")
	require.NotNil(t, spy.bag)
	assert.Equal(t, "s", spy.bag.Params["string"])
	assert.Equal(t, int64(1), spy.bag.Params["integer"])
	assert.Equal(t, "true", spy.bag.Params["flag"], "flag is only declared on GET, so it stays raw")
}

func TestRequestSubstitute(t *testing.T) {
	var handled []error
	mw, err := middleware.NewRequestValidation(loadDoc(t),
		middleware.WithErrorHandler(func(err error, r *http.Request) {
			handled = append(handled, err)
			assert.Equal(t, "/validate", r.URL.Path)
		}),
	)
	require.NoError(t, err)

	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	err = mw.Wrap(spy.HandlerFunc())(rec, jsonRequest(http.MethodPost, "/validate", `{"string":1}`))
	require.NoError(t, err)

	assert.False(t, spy.called, "a rejected request never reaches the handler")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "bad_request", body.ID)
	assert.Equal(t, "invalid parameter type string 1 integer string", body.Message)
	require.Len(t, handled, 1)
	assert.ErrorIs(t, handled[0], oaserrors.ErrInvalidRequest)
}

func TestRequestErrorStatus(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t), middleware.WithErrorStatus(http.StatusUnprocessableEntity))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = mw.Wrap((&spyHandler{}).HandlerFunc())(rec, jsonRequest(http.MethodPost, "/validate", `{"object_2":{}}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "required parameters string_2,integer_2,boolean_2,number_2 not exist", decodeError(t, rec).Message)
}

func TestRequestRaise(t *testing.T) {
	var handled int
	mw, err := middleware.NewRequestValidation(loadDoc(t),
		middleware.WithRaise(true),
		middleware.WithErrorHandler(func(error, *http.Request) { handled++ }),
	)
	require.NoError(t, err)

	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	err = mw.Wrap(spy.HandlerFunc())(rec, jsonRequest(http.MethodPost, "/validate", `{"any_of":[1]}`))
	require.Error(t, err)

	var reqErr *oaserrors.InvalidRequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "isn't any of")
	assert.False(t, spy.called)
	assert.Empty(t, rec.Body.String(), "nothing is written when raising")
	assert.Equal(t, 1, handled)
}

func TestRequestIgnoreError(t *testing.T) {
	var handled int
	mw, err := middleware.NewRequestValidation(loadDoc(t),
		middleware.WithIgnoreError(true),
		middleware.WithErrorHandler(func(error, *http.Request) { handled++ }),
	)
	require.NoError(t, err)

	spy := &spyHandler{}
	rec := httptest.NewRecorder()
	err = mw.Wrap(spy.HandlerFunc())(rec, jsonRequest(http.MethodPost, "/validate", `{"string":1}`))
	require.NoError(t, err)

	assert.True(t, spy.called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, handled)
	require.NotNil(t, spy.bag)
}

func TestRequestParseErrorAlwaysPropagates(t *testing.T) {
	for _, opts := range [][]middleware.Option{
		nil,
		{middleware.WithIgnoreError(true)},
		{middleware.WithRaise(true)},
	} {
		mw, err := middleware.NewRequestValidation(loadDoc(t), opts...)
		require.NoError(t, err)

		spy := &spyHandler{}
		err = mw.Wrap(spy.HandlerFunc())(httptest.NewRecorder(), jsonRequest(http.MethodPost, "/validate", `{"string":`))
		assert.ErrorIs(t, err, oaserrors.ErrParse)
		assert.False(t, spy.called)
	}
}

func TestRequestUnsupportedMethod(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t), middleware.WithIgnoreError(true))
	require.NoError(t, err)

	spy := &spyHandler{}
	err = mw.Wrap(spy.HandlerFunc())(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/validate", nil))
	assert.ErrorIs(t, err, oaserrors.ErrUnsupportedMethod)
	assert.NotErrorIs(t, err, oaserrors.ErrParse)
	var methodErr *oaserrors.UnsupportedMethodError
	require.ErrorAs(t, err, &methodErr)
	assert.Equal(t, http.MethodHead, methodErr.Method)
	assert.False(t, spy.called)
}

// ===== Request Routing Tests =====

func TestRequestUnmatched(t *testing.T) {
	t.Run("passes through by default", func(t *testing.T) {
		mw, err := middleware.NewRequestValidation(loadDoc(t))
		require.NoError(t, err)

		for _, r := range []*http.Request{
			jsonRequest(http.MethodPost, "/unknown", `{"string":1}`),
			jsonRequest(http.MethodPut, "/characters", `{"string":1}`),
		} {
			spy := &spyHandler{}
			require.NoError(t, mw.Wrap(spy.HandlerFunc())(httptest.NewRecorder(), r))
			assert.True(t, spy.called)
			assert.Nil(t, spy.bag)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		mw, err := middleware.NewRequestValidation(loadDoc(t), middleware.WithRejectUnmatched(true))
		require.NoError(t, err)

		spy := &spyHandler{}
		rec := httptest.NewRecorder()
		require.NoError(t, mw.Wrap(spy.HandlerFunc())(rec, httptest.NewRequest(http.MethodGet, "/unknown", nil)))
		assert.False(t, spy.called)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).ID)
	})
}

func TestRequestPrefix(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t), middleware.WithPrefix("/v1"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, mw.Wrap((&spyHandler{}).HandlerFunc())(rec, jsonRequest(http.MethodPost, "/v1/validate", `{"string":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	spy := &spyHandler{}
	require.NoError(t, mw.Wrap(spy.HandlerFunc())(httptest.NewRecorder(), jsonRequest(http.MethodPost, "/validate", `{"string":1}`)))
	assert.True(t, spy.called, "paths outside the prefix are not validated")
}

func TestRequestAcceptFilter(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t),
		middleware.WithAcceptRequestFilter(func(r *http.Request) bool {
			return r.Header.Get("X-Skip-Validation") == ""
		}),
	)
	require.NoError(t, err)

	r := jsonRequest(http.MethodPost, "/validate", `{"string":1}`)
	r.Header.Set("X-Skip-Validation", "1")
	spy := &spyHandler{}
	require.NoError(t, mw.Wrap(spy.HandlerFunc())(httptest.NewRecorder(), r))
	assert.True(t, spy.called)
}

func TestRequestCheckHeader(t *testing.T) {
	tests := []struct {
		name        string
		checkHeader bool
		header      string
		wantStatus  int
		wantMessage string
	}{
		{"disabled ignores missing header", false, "", http.StatusOK, ""},
		{"missing header", true, "", http.StatusBadRequest, "required parameters X-Limit not exist"},
		{"wrong type", true, "many", http.StatusBadRequest, "invalid parameter type X-Limit many string integer"},
		{"coerced header", true, "10", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, err := middleware.NewRequestValidation(loadDoc(t), middleware.WithCheckHeader(tt.checkHeader))
			require.NoError(t, err)

			r := httptest.NewRequest(http.MethodGet, "/validate", nil)
			if tt.header != "" {
				r.Header.Set("X-Limit", tt.header)
			}
			rec := httptest.NewRecorder()
			require.NoError(t, mw.Wrap((&spyHandler{}).HandlerFunc())(rec, r))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, decodeError(t, rec).Message)
			}
		})
	}
}

func TestRequestHandler(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t), middleware.WithRaise(true))
	require.NoError(t, err)

	var called bool
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	}))

	tests := []struct {
		name   string
		req    *http.Request
		status int
		id     string
	}{
		{"raised failure", jsonRequest(http.MethodPost, "/validate", `{"string":1}`), http.StatusBadRequest, "bad_request"},
		{"parse error", jsonRequest(http.MethodPost, "/validate", `nope`), http.StatusBadRequest, "bad_request"},
		{"unsupported method", httptest.NewRequest(http.MethodHead, "/validate", nil), http.StatusInternalServerError, "internal_server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called = false
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			assert.False(t, called)
			assert.Equal(t, tt.status, rec.Code)
			if tt.req.Method != http.MethodHead {
				assert.Equal(t, tt.id, decodeError(t, rec).ID)
			}
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, jsonRequest(http.MethodPost, "/validate", `{"string":"ok"}`))
	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

// ===== Option Tests =====

func TestOptionErrors(t *testing.T) {
	doc := loadDoc(t)

	tests := []struct {
		name string
		opts []middleware.Option
	}{
		{"raise and ignore", []middleware.Option{middleware.WithRaise(true), middleware.WithIgnoreError(true)}},
		{"status below 400", []middleware.Option{middleware.WithErrorStatus(200)}},
		{"status above 599", []middleware.Option{middleware.WithErrorStatus(600)}},
		{"body size", []middleware.Option{middleware.WithMaxBodySize(0)}},
		{"relative prefix", []middleware.Option{middleware.WithPrefix("v1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := middleware.NewRequestValidation(doc, tt.opts...)
			assert.ErrorIs(t, err, oaserrors.ErrConfig)
			_, err = middleware.NewResponseValidation(doc, tt.opts...)
			assert.ErrorIs(t, err, oaserrors.ErrConfig)
		})
	}

	_, err := middleware.NewRequestValidation(nil)
	assert.ErrorIs(t, err, oaserrors.ErrConfig)
}

func TestMaxBodySize(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t), middleware.WithMaxBodySize(4))
	require.NoError(t, err)

	err = mw.Wrap((&spyHandler{}).HandlerFunc())(httptest.NewRecorder(), jsonRequest(http.MethodPost, "/validate", `{"string":"long"}`))
	var parseErr *oaserrors.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "body exceeds 4 bytes", parseErr.Message)
}

func TestValidator(t *testing.T) {
	mw, err := middleware.NewRequestValidation(loadDoc(t))
	require.NoError(t, err)
	assert.Equal(t, spec.OpenAPI3, mw.Validator().Dialect())
}
