package ports

import "net/http"

// HTTPClient is what the webhook transport needs from an HTTP client.
// *http.Client satisfies it; tests pass an httptest server's client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
