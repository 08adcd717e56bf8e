package session

import (
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`)) + "." +
		enc.EncodeToString([]byte(payload)) + ".sig"
}

func TestSession_SetAndClear(t *testing.T) {
	s := New("")
	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())

	s.Set("tok", &User{Email: "a@example.com", Role: RoleAdmin})
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "tok", s.Token())
	require.NotNil(t, s.User())
	assert.True(t, s.User().IsAdmin())

	var cleared int
	s.OnClear(func() { cleared++ })
	s.Clear()
	s.Clear()

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	assert.Equal(t, 1, cleared, "hooks only run when a token was dropped")
}

func TestSession_UserIsCopied(t *testing.T) {
	u := &User{Email: "a@example.com", Role: RoleUser}
	s := New("")
	s.Set("tok", u)

	u.Role = RoleAdmin
	assert.Equal(t, RoleUser, s.User().Role)

	got := s.User()
	got.Role = RoleAdmin
	assert.Equal(t, RoleUser, s.User().Role)
}

func TestSession_Claims(t *testing.T) {
	s := New(makeToken(`{"sub":"a@example.com","exp":1900000000}`))

	claims, err := s.Claims()
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims["sub"])

	exp, ok := ExpiresAt(claims)
	require.True(t, ok)
	assert.Equal(t, time.Unix(1900000000, 0), exp)
}

func TestSession_ClaimsErrors(t *testing.T) {
	_, err := New("").Claims()
	assert.ErrorIs(t, err, ErrNoToken)

	tests := []struct {
		name  string
		token string
	}{
		{name: "single segment", token: "abc"},
		{name: "bad base64", token: "a.!!!.c"},
		{name: "not json", token: "a." + base64.RawURLEncoding.EncodeToString([]byte("plain")) + ".c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClaims(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestSession_Concurrent(t *testing.T) {
	s := New("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.Set("tok", &User{Role: RoleUser}) }()
		go func() { defer wg.Done(); _ = s.IsAuthenticated(); _ = s.User() }()
	}
	wg.Wait()
	assert.True(t, s.IsAuthenticated())
}
