package auth

import (
	"log"
	"net/http"
	"net/http/httputil"
)

// Proxy forwards ProxyPrefix requests to the backend so its session cookie
// lands on the shell's own origin. The backend scopes that cookie to
// /api/auth; the proxy widens it to / so page requests carry it too. Only
// the session cookie travels upstream.
func (c *Client) Proxy(logger *log.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(c.base)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			if ck, err := pr.In.Cookie(c.cookieName); err == nil {
				pr.Out.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
			}
		},
		Transport: c.http.Transport,
		ModifyResponse: func(resp *http.Response) error {
			cookies := resp.Cookies()
			if len(cookies) == 0 {
				return nil
			}
			resp.Header.Del("Set-Cookie")
			for _, ck := range cookies {
				ck.Domain = ""
				if ck.Name == c.cookieName {
					ck.Path = "/"
				}
				resp.Header.Add("Set-Cookie", ck.String())
			}
			return nil
		},
		ErrorLog: logger,
	}
}
