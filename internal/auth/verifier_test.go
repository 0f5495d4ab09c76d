package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/dhsdevclub/ticktock-api/pkg/errors"
)

const testClientID = "test-client.apps.googleusercontent.com"

func newTokenInfoServer(t *testing.T, infos map[string]TokenInfo, calls *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(calls, 1)
		token := r.URL.Query().Get("access_token")
		if token == "" {
			token = r.URL.Query().Get("id_token")
		}
		info, ok := infos[token]
		if !ok {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(info)
	}))
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func newTestVerifier(t *testing.T, srv *httptest.Server, cache *redis.Client) *Verifier {
	t.Helper()
	tokens := NewTokenInfoClient(srv.Client(), cache, srv.URL, 5*time.Minute, nil)
	return NewVerifier(tokens, []string{testClientID}, nil)
}

func TestVerifyAccessToken(t *testing.T) {
	var calls int64
	srv := newTokenInfoServer(t, map[string]TokenInfo{
		"tok-1": {Aud: testClientID, UserID: "118200000000000000001", ExpiresIn: "3600"},
	}, &calls)
	defer srv.Close()

	verifier := newTestVerifier(t, srv, newTestRedis(t))
	ident, err := verifier.Verify(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "118200000000000000001", ident.ExternalID)
	assert.Equal(t, "tok-1", ident.Token)
	assert.Positive(t, ident.Key)
	assert.Less(t, ident.Key, int64(1)<<48)
}

func TestVerifyCachesTokenInfo(t *testing.T) {
	var calls int64
	srv := newTokenInfoServer(t, map[string]TokenInfo{
		"tok-1": {Aud: testClientID, UserID: "42", ExpiresIn: "3600"},
	}, &calls)
	defer srv.Close()

	verifier := newTestVerifier(t, srv, newTestRedis(t))
	for i := 0; i < 3; i++ {
		_, err := verifier.Verify(context.Background(), "tok-1")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt64(&calls), "repeat verifications served from cache")
}

func TestVerifyRejectsWrongAudience(t *testing.T) {
	var calls int64
	srv := newTokenInfoServer(t, map[string]TokenInfo{
		"tok-evil": {Aud: "other-client", UserID: "42", ExpiresIn: "3600"},
	}, &calls)
	defer srv.Close()

	verifier := newTestVerifier(t, srv, newTestRedis(t))
	_, err := verifier.Verify(context.Background(), "tok-evil")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestVerifyRejectsUnknownToken(t *testing.T) {
	var calls int64
	srv := newTokenInfoServer(t, nil, &calls)
	defer srv.Close()

	verifier := newTestVerifier(t, srv, newTestRedis(t))
	_, err := verifier.Verify(context.Background(), "bogus")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)

	_, err = verifier.Verify(context.Background(), "")
	require.Error(t, err)
}

func TestVerifyIDTokenReadsSubject(t *testing.T) {
	idToken := buildUnsignedJWT(t, map[string]interface{}{
		"sub": "118200000000000000042",
		"aud": testClientID,
	})

	var calls int64
	srv := newTokenInfoServer(t, map[string]TokenInfo{
		idToken: {Aud: testClientID, Sub: "118200000000000000042", ExpiresIn: "3600"},
	}, &calls)
	defer srv.Close()

	verifier := newTestVerifier(t, srv, newTestRedis(t))
	ident, err := verifier.Verify(context.Background(), idToken)
	require.NoError(t, err)
	assert.Equal(t, "118200000000000000042", ident.ExternalID)
}

func buildUnsignedJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return fmt.Sprintf("%s.%s.sig", enc.EncodeToString(header), enc.EncodeToString(payload))
}
