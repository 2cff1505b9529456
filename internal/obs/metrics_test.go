package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                         "/",
		"/healthz":                 "/healthz",
		"/v1/places":               "/v1/places",
		"/v1/places/exist":         "/v1/places/exist",
		"/v1/users":                "/v1/users",
		"/v1/users/exist":          "/v1/users/exist",
		"/v1/users/01HXZABC":       "/v1/users/:id",
		"/v1/users/01HXZABC?x=1":   "/v1/users/:id",
		"/v1/users/01HXZ/extra":    "/v1/users/01HXZ/extra",
		"/v1/info?verbose=1":       "/v1/info",
		"/v1/measurements/exist":   "/v1/measurements/exist",
	}
	for in, want := range cases {
		if got := CanonicalPath(in); got != want {
			t.Fatalf("CanonicalPath(%q) = %q, want %q", in, got, want)
		}
	}
}
