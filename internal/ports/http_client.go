package ports

import "net/http"

// HTTPClient sends homeserver requests. *http.Client satisfies it; tests
// substitute failing or recording clients.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
