package router

import "net/http"

// Middleware applies routing decisions ahead of the wrapped handler.
// Rewrites stay invisible to the client; only the canonical-host rule
// ever answers with a redirect.
func (r *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		d := r.Decide(req.Host, req.URL.Path)

		switch d.Action {
		case RedirectCanonical:
			target := scheme(req) + "://" + d.Host + req.URL.RequestURI()
			http.Redirect(w, req, target, http.StatusPermanentRedirect)
			return

		case NotFound:
			http.NotFound(w, req)
			return

		case Rewrite:
			if d.NoIndex {
				w.Header().Set("X-Robots-Tag", "noindex, nofollow")
			}
			req = req.Clone(req.Context())
			req.URL.Path = d.Path
		}

		next.ServeHTTP(w, req)
	})
}

func scheme(req *http.Request) string {
	if v := req.Header.Get("X-Forwarded-Proto"); v != "" {
		return v
	}
	if req.TLS != nil {
		return "https"
	}
	return "http"
}
