package ratelimit

import (
	"testing"

	"github.com/valyala/fasthttp"
)

func TestClientID(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"none", nil, UnknownClient},
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "203.0.113.7"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "203.0.113.7"},
		{"forwarded wins", map[string]string{
			"X-Forwarded-For":  "1.1.1.1",
			"X-Real-IP":        "2.2.2.2",
			"CF-Connecting-IP": "3.3.3.3",
		}, "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "2.2.2.2", "CF-Connecting-IP": "3.3.3.3"}, "2.2.2.2"},
		{"cdn", map[string]string{"CF-Connecting-IP": "3.3.3.3"}, "3.3.3.3"},
		{"empty first hop falls through", map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "2.2.2.2"}, "2.2.2.2"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var h fasthttp.RequestHeader
			for k, v := range c.headers {
				h.Set(k, v)
			}
			if got := ClientID(&h); got != c.want {
				t.Errorf("ClientID = %q, want %q", got, c.want)
			}
		})
	}
}
