package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapCarrier struct {
	headers map[string]string
	cookies map[string]string
}

func (m mapCarrier) Header(name string) string { return m.headers[name] }
func (m mapCarrier) Cookie(name string) string { return m.cookies[name] }

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		cookies map[string]string
		want    string
		ok      bool
	}{
		{name: "bearer header", headers: map[string]string{"Authorization": "Bearer abc.def.ghi"}, want: "abc.def.ghi", ok: true},
		{name: "case insensitive scheme", headers: map[string]string{"Authorization": "bearer abc"}, want: "abc", ok: true},
		{
			name:    "header wins over cookie",
			headers: map[string]string{"Authorization": "Bearer from-header"},
			cookies: map[string]string{AccessTokenCookie: "from-cookie"},
			want:    "from-header", ok: true,
		},
		{
			name:    "undefined placeholder falls back to cookie",
			headers: map[string]string{"Authorization": "Bearer undefined"},
			cookies: map[string]string{AccessTokenCookie: "from-cookie"},
			want:    "from-cookie", ok: true,
		},
		{
			name:    "non bearer scheme falls back to cookie",
			headers: map[string]string{"Authorization": "Basic dXNlcjpwYXNz"},
			cookies: map[string]string{AccessTokenCookie: "from-cookie"},
			want:    "from-cookie", ok: true,
		},
		{name: "cookie only", cookies: map[string]string{AccessTokenCookie: "from-cookie"}, want: "from-cookie", ok: true},
		{name: "placeholder only", headers: map[string]string{"Authorization": "Bearer undefined"}},
		{name: "empty bearer", headers: map[string]string{"Authorization": "Bearer "}},
		{name: "nothing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractToken(mapCarrier{headers: tc.headers, cookies: tc.cookies})
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
