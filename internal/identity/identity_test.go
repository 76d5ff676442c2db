package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestHeaderVerifier(t *testing.T) {
	admins := NewAdminPolicy([]string{"Boss@Example.com"}, []string{"download-admin"})
	v := NewHeaderVerifier(DefaultHeaderNames(), admins)

	t.Run("primary header", func(t *testing.T) {
		c, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Authenticated-User-Email": "A@X.com",
			"User-Agent":                         "curl/8",
		}))
		require.NoError(t, err)
		assert.True(t, c.Authenticated())
		assert.Equal(t, "a@x.com", c.Email)
		assert.Equal(t, "curl/8", c.UserAgent)
		assert.False(t, c.IsAdmin)
	})

	t.Run("client supplied groups header is ignored", func(t *testing.T) {
		c, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Authenticated-User-Email": "intern@example.com",
			"X-Authenticated-User-Groups":        "admin, Download-Admin",
		}))
		require.NoError(t, err)
		assert.Equal(t, "intern@example.com", c.Email)
		assert.Empty(t, c.Groups)
		assert.False(t, c.IsAdmin)
	})

	t.Run("configured groups header", func(t *testing.T) {
		headers := DefaultHeaderNames()
		headers.Groups = "X-Authenticated-User-Groups"
		withGroups := NewHeaderVerifier(headers, admins)

		c, err := withGroups.Verify(newRequest(map[string]string{
			"X-Authenticated-User-Email":  "ops@x.com",
			"X-Authenticated-User-Groups": "staff, Download-Admin",
		}))
		require.NoError(t, err)
		assert.Equal(t, "ops@x.com", c.Email)
		assert.Equal(t, []string{"staff", "Download-Admin"}, c.Groups)
		assert.True(t, c.IsAdmin)
	})

	t.Run("primary wins over fallback", func(t *testing.T) {
		c, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Authenticated-User-Email": "boss@example.com",
			"X-Authenticated-User-Email":         "other@x.com",
		}))
		require.NoError(t, err)
		assert.Equal(t, "boss@example.com", c.Email)
		assert.True(t, c.IsAdmin)
	})

	t.Run("anonymous", func(t *testing.T) {
		c, err := v.Verify(newRequest(nil))
		require.NoError(t, err)
		assert.False(t, c.Authenticated())
		assert.False(t, c.IsAdmin)
		assert.Equal(t, "10.1.2.3", c.Location.IP)
	})
}

func TestAdminPolicy(t *testing.T) {
	p := NewAdminPolicy([]string{"boss@example.com"}, []string{"admin"})

	assert.True(t, p.IsAdmin(Caller{Email: "BOSS@example.com"}))
	assert.True(t, p.IsAdmin(Caller{Email: "x@y.z", Groups: []string{"Admin"}}))
	assert.False(t, p.IsAdmin(Caller{Email: "x@y.z", Groups: []string{"staff"}}))
	assert.False(t, p.IsAdmin(Caller{Groups: []string{"admin"}}), "anonymous caller")

	var nilPolicy *AdminPolicy
	assert.False(t, nilPolicy.IsAdmin(Caller{Email: "boss@example.com"}))
}

func signAssertion(t *testing.T, secret string, claims AssertionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTVerifier(t *testing.T) {
	cfg := JWTConfig{Secret: "s3cret", Audience: "portal", Issuer: "https://team.example.com"}
	admins := NewAdminPolicy(nil, []string{"administrators"})
	v := NewJWTVerifier("Cf-Access-Jwt-Assertion", cfg, admins)

	valid := AssertionClaims{
		Email:  "Admin@X.com",
		Groups: []string{"administrators"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"portal"},
			Issuer:    "https://team.example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid assertion", func(t *testing.T) {
		c, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Jwt-Assertion": signAssertion(t, "s3cret", valid),
		}))
		require.NoError(t, err)
		assert.Equal(t, "admin@x.com", c.Email)
		assert.Equal(t, "user-1", c.UserID)
		assert.True(t, c.IsAdmin)
	})

	t.Run("bearer fallback", func(t *testing.T) {
		c, err := v.Verify(newRequest(map[string]string{
			"Authorization": "Bearer " + signAssertion(t, "s3cret", valid),
		}))
		require.NoError(t, err)
		assert.Equal(t, "admin@x.com", c.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Jwt-Assertion": signAssertion(t, "other", valid),
		}))
		assert.ErrorIs(t, err, ErrInvalidAssertion)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := valid
		claims.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Jwt-Assertion": signAssertion(t, "s3cret", claims),
		}))
		assert.ErrorIs(t, err, ErrInvalidAssertion)
	})

	t.Run("expired", func(t *testing.T) {
		claims := valid
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		_, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Jwt-Assertion": signAssertion(t, "s3cret", claims),
		}))
		assert.ErrorIs(t, err, ErrInvalidAssertion)
	})

	t.Run("plain email header is ignored", func(t *testing.T) {
		c, err := v.Verify(newRequest(map[string]string{
			"Cf-Access-Authenticated-User-Email": "spoof@x.com",
		}))
		require.NoError(t, err)
		assert.False(t, c.Authenticated())
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"connecting ip header", map[string]string{"Cf-Connecting-Ip": "203.0.113.9", "X-Forwarded-For": "198.51.100.1"}, "203.0.113.9"},
		{"forwarded public hop", map[string]string{"X-Forwarded-For": "10.0.0.1, 198.51.100.1"}, "198.51.100.1"},
		{"forwarded private only", map[string]string{"X-Forwarded-For": "192.168.1.4, 10.0.0.1"}, "192.168.1.4"},
		{"garbage header falls through", map[string]string{"Cf-Connecting-Ip": "nope"}, "10.1.2.3"},
		{"socket address", nil, "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClientIP(newRequest(tt.headers)))
		})
	}

	r := newRequest(nil)
	r.RemoteAddr = ""
	assert.Equal(t, UnknownIP, ClientIP(r))
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want string
	}{
		{"city region country", Location{City: "Austin", Region: "Texas", RegionCode: "TX", Country: "US"}, "Austin, Texas, US"},
		{"city region code country", Location{City: "Austin", RegionCode: "TX", Country: "US"}, "Austin, TX, US"},
		{"city country", Location{City: "Paris", Country: "FR"}, "Paris, FR"},
		{"region country", Location{Region: "Bavaria", Country: "DE"}, "Bavaria, DE"},
		{"country only", Location{Country: "GB"}, "United Kingdom"},
		{"unknown country code", Location{Country: "ZZ"}, "ZZ"},
		{"nothing", Location{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.String())
		})
	}
}

func TestExtractLocation(t *testing.T) {
	loc := ExtractLocation(newRequest(map[string]string{
		"Cf-Connecting-Ip": "203.0.113.9",
		"Cf-Ipcountry":     "us",
		"Cf-Ipcity":        "Austin",
		"Cf-Region":        "Texas",
		"Cf-Region-Code":   "TX",
		"Cf-Timezone":      "America/Chicago",
	}))
	assert.Equal(t, "203.0.113.9", loc.IP)
	assert.Equal(t, "US", loc.Country)
	assert.Equal(t, "America/Chicago", loc.Timezone)
	assert.Equal(t, "Austin, Texas, US", loc.String())

	assert.Empty(t, ExtractLocation(newRequest(map[string]string{"Cf-Ipcountry": "XX"})).Country)
}

func TestCallerContext(t *testing.T) {
	ctx := WithCaller(context.Background(), Caller{Email: "a@x.com"})
	assert.Equal(t, "a@x.com", FromContext(ctx).Email)
	assert.False(t, FromContext(context.Background()).Authenticated())
}
