package httpapi

import "strings"

// DefaultMaxBodyBytes bounds JSON request bodies unless SetMaxBodyBytes says otherwise.
const DefaultMaxBodyBytes int64 = 1 << 20

var maxBodyBytes = DefaultMaxBodyBytes

// SetMaxBodyBytes sets the request body limit; n <= 0 restores the default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = DefaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// CORSOptions enables cross-origin access to the chat routes. Empty lists
// fall back to what a browser chat client needs.
type CORSOptions struct {
	Enabled bool
	Origins []string
	Methods []string
	Headers []string
}

var corsOpts CORSOptions

// SetCORSOptions installs o for routers built afterwards. CORS is off unless
// o.Enabled.
func SetCORSOptions(o CORSOptions) {
	if !o.Enabled {
		corsOpts = CORSOptions{}
		return
	}
	corsOpts = CORSOptions{
		Enabled: true,
		Origins: orDefault(o.Origins, "*"),
		Methods: orDefault(o.Methods, "GET", "POST", "OPTIONS"),
		Headers: orDefault(o.Headers, "Content-Type", "X-Log-Level", "X-Request-Id"),
	}
}

func orDefault(v []string, def ...string) []string {
	if len(v) == 0 {
		return def
	}
	return append([]string(nil), v...)
}

var rootPath string

// SetRootPath mounts the API under p (e.g. "/api") for services behind a
// path-based proxy. Empty mounts at "/".
func SetRootPath(p string) { rootPath = strings.TrimRight(p, "/") }
