package endpoint

import (
	stderrors "errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/Theruz/8aAscents/client/internal/errors"
)

func getProfile(id string) Descriptor {
	return New(CategoryProfiles, http.MethodGet, "/v1/profiles/{profileId}",
		WithAuth(AuthLevelOne), WithPathParams(id))
}

func TestResolvedPath(t *testing.T) {
	cases := []struct {
		template string
		params   []string
		want     string
	}{
		{"/v1/profiles", nil, "/v1/profiles"},
		{"v1/sessions/login", nil, "/v1/sessions/login"},
		{"/v1/profiles/{id}", []string{"42"}, "/v1/profiles/42"},
		{"/v1/profiles/%@", []string{"42"}, "/v1/profiles/42"},
		{"/v1/a/%s/b/{x}", []string{"1", "two words"}, "/v1/a/1/b/two%20words"},
	}
	for _, tc := range cases {
		d := New(CategoryProfiles, "get", tc.template, WithPathParams(tc.params...))
		got, err := d.ResolvedPath()
		require.NoError(t, err, tc.template)
		assert.Equal(t, tc.want, got)
	}
}

func TestResolvedPath_Errors(t *testing.T) {
	for name, d := range map[string]Descriptor{
		"missing":      New(CategoryProfiles, "GET", "/v1/profiles/{id}"),
		"surplus":      New(CategoryProfiles, "GET", "/v1/profiles", WithPathParams("1")),
		"unterminated": New(CategoryProfiles, "GET", "/v1/profiles/{id", WithPathParams("1")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := d.ResolvedPath()
			require.Error(t, err)
			var ee *apierrors.EncodingError
			assert.True(t, stderrors.As(err, &ee))
			assert.True(t, stderrors.Is(err, apierrors.ErrEncoding))
		})
	}
}

func TestEquivalent_Structural(t *testing.T) {
	a := getProfile("42")
	b := getProfile("42")
	assert.True(t, Equivalent(a, b))
	assert.False(t, Equivalent(a, getProfile("43")))
}

func TestEquivalent_OrderIndependentParams(t *testing.T) {
	a := New(CategoryProfiles, "POST", "/v1/profiles",
		WithBody(map[string]any{"birthDate": "1990-01-01", "insuranceNumber": "756.1"}),
		WithQuery(map[string]string{"a": "1", "b": "2"}),
		WithHeaders(map[string]string{"x-trace": "on", "Accept": "json"}))
	b := New(CategoryProfiles, "post", "/v1/profiles",
		WithBody(map[string]any{"insuranceNumber": "756.1", "birthDate": "1990-01-01"}),
		WithQuery(map[string]string{"b": "2", "a": "1"}),
		WithHeaders(map[string]string{"Accept": "json", "X-Trace": "on"}))
	assert.True(t, Equivalent(a, b))
	assert.Equal(t, a.Key(), b.Key())
}

func TestEquivalent_BodyComparedAfterFormEncoding(t *testing.T) {
	a := New(CategorySessions, "POST", "/v1/sessions/login",
		WithBody(map[string]any{"n": 1, "rememberMe": true, "tags": []string{"x", "y"}}))
	b := New(CategorySessions, "POST", "/v1/sessions/login",
		WithBody(map[string]any{"n": "1", "rememberMe": "1", "tags": []any{"x", "y"}}))
	assert.True(t, Equivalent(a, b))

	c := New(CategorySessions, "POST", "/v1/sessions/login",
		WithBody(map[string]any{"n": 1, "rememberMe": false, "tags": []string{"x", "y"}}))
	assert.False(t, Equivalent(a, c))
}

func TestEquivalent_Differences(t *testing.T) {
	base := getProfile("1")
	others := map[string]Descriptor{
		"method":   New(CategoryProfiles, "DELETE", "/v1/profiles/{id}", WithAuth(AuthLevelOne), WithPathParams("1")),
		"auth":     New(CategoryProfiles, "GET", "/v1/profiles/{id}", WithAuth(AuthLevelTwo), WithPathParams("1")),
		"category": New(CategoryAccounts, "GET", "/v1/profiles/{id}", WithAuth(AuthLevelOne), WithPathParams("1")),
		"host":     New(CategoryProfiles, "GET", "/v1/profiles/{id}", WithAuth(AuthLevelOne), WithPathParams("1"), WithHost("other", 0)),
		"query":    New(CategoryProfiles, "GET", "/v1/profiles/{id}", WithAuth(AuthLevelOne), WithPathParams("1"), WithQuery(map[string]string{"x": "y"})),
		"header":   New(CategoryProfiles, "GET", "/v1/profiles/{id}", WithAuth(AuthLevelOne), WithPathParams("1"), WithHeaders(map[string]string{"x": "y"})),
	}
	for name, d := range others {
		assert.False(t, Equivalent(base, d), name)
	}
}

func TestEncode_JSONBody(t *testing.T) {
	d := New(CategoryProfiles, "POST", "/v1/profiles",
		WithBody(map[string]any{"birthDate": "1990-01-01"}),
		WithQuery(map[string]string{"dry": "true"}),
		WithHeaders(map[string]string{"X-Client": "ascents"}))

	req, err := d.Encode(Target{Scheme: "http", Host: "10.0.0.1", Port: 8080})
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "http://10.0.0.1:8080/v1/profiles?dry=true", req.URL.String())
	assert.Equal(t, "ascents", req.Header.Get("X-Client"))
	assert.Equal(t, "application/json", req.ContentType)
	assert.JSONEq(t, `{"birthDate":"1990-01-01"}`, string(req.Body))
	assert.False(t, req.Multipart())
}

func TestEncode_FormBody(t *testing.T) {
	d := New(CategorySessions, "POST", "v1/sessions/login", WithEncoding(EncodingForm),
		WithBody(map[string]any{"email": "a@b.ch", "password": "p&w", "rememberMe": true}))

	req, err := d.Encode(Target{Host: "backend.example"})
	require.NoError(t, err)

	assert.Equal(t, "https://backend.example/v1/sessions/login", req.URL.String())
	vals, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)
	assert.Equal(t, "a@b.ch", vals.Get("email"))
	assert.Equal(t, "p&w", vals.Get("password"))
	assert.Equal(t, "1", vals.Get("rememberMe"))
	assert.Contains(t, req.ContentType, "application/x-www-form-urlencoded")
}

func TestEncode_Multipart(t *testing.T) {
	d := New(CategoryAttachments, "POST", "/v1/attachments",
		WithBody(map[string]any{"kind": "card"}),
		WithAttachments(Attachment{Field: "file", FileName: "file.jpg", ContentType: "image/jpg", Data: []byte{1, 2}}))

	req, err := d.Encode(Target{Host: "h"})
	require.NoError(t, err)
	assert.True(t, req.Multipart())
	assert.Equal(t, map[string]string{"kind": "card"}, req.Form)
	assert.Nil(t, req.Body)
}

func TestEncode_HostOverrideAndMissingHost(t *testing.T) {
	d := New(CategoryProfiles, "GET", "/v1/x", WithHost("pinned.example", 9443))
	req, err := d.Encode(Target{Host: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "pinned.example:9443", req.URL.Host)

	_, err = New(CategoryProfiles, "GET", "/v1/x").Encode(Target{})
	assert.True(t, stderrors.Is(err, apierrors.ErrEncoding))
}

func TestDescriptorIsImmutable(t *testing.T) {
	body := map[string]any{"a": "1"}
	d := New(CategoryProfiles, "POST", "/v1/x", WithBody(body))
	key := d.Key()

	body["a"] = "2"
	d.Body()["a"] = "3"

	assert.Equal(t, key, d.Key())
}

func TestAuthLevelOrdering(t *testing.T) {
	assert.Less(t, AuthNone, AuthLevelOne)
	assert.Less(t, AuthLevelOne, AuthLevelTwo)
	assert.Equal(t, "levelTwo", AuthLevelTwo.String())
}
