// Package endpoint describes API calls as immutable values and turns them
// into transport requests.
//
// Two descriptors are equivalent when they would produce the same call:
// same resolved path, method, required auth level, target (category and host
// override) and the same query, header and body parameters. Body parameters
// are compared after canonical form encoding, so {"n": 1} and {"n": "1"} are
// the same call. Key returns that canonical form; the dispatcher
// deduplicates on it.
package endpoint

import (
	"fmt"
	"maps"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// AuthLevel is the ordered trust tier required to invoke an endpoint.
type AuthLevel int

const (
	AuthNone AuthLevel = iota
	AuthLevelOne
	AuthLevelTwo
)

func (l AuthLevel) String() string {
	switch l {
	case AuthNone:
		return "none"
	case AuthLevelOne:
		return "levelOne"
	case AuthLevelTwo:
		return "levelTwo"
	default:
		return "AuthLevel(" + strconv.Itoa(int(l)) + ")"
	}
}

// Category groups endpoints served by the same backend host.
type Category string

const (
	CategoryConfigTool    Category = "configTool"
	CategoryAccounts      Category = "accounts"
	CategoryAppointments  Category = "appointments"
	CategoryAttachments   Category = "attachments"
	CategoryNotifications Category = "notifications"
	CategoryProfiles      Category = "profiles"
	CategorySessions      Category = "sessions"
)

// Encoding selects how body parameters are written.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingForm
)

func (e Encoding) String() string {
	if e == EncodingForm {
		return "form"
	}
	return "json"
}

// Attachment is one file sent in a multipart body.
type Attachment struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Descriptor is an immutable description of one API call.
// Construct it with New; the zero value is not useful.
type Descriptor struct {
	category    Category
	method      string
	template    string
	description string
	auth        AuthLevel
	encoding    Encoding
	body        map[string]any
	query       map[string]string
	headers     map[string]string
	pathParams  []string
	attachments []Attachment
	host        string
	port        int
}

// Option configures a Descriptor during New.
type Option func(*Descriptor)

// New builds a descriptor. method is normalised to upper case.
func New(category Category, method, pathTemplate string, opts ...Option) Descriptor {
	d := Descriptor{
		category: category,
		method:   strings.ToUpper(method),
		template: pathTemplate,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithAuth sets the auth level the endpoint requires.
func WithAuth(level AuthLevel) Option {
	return func(d *Descriptor) { d.auth = level }
}

// WithBody sets the body parameters. The map is copied.
func WithBody(params map[string]any) Option {
	return func(d *Descriptor) { d.body = maps.Clone(params) }
}

// WithQuery sets the URL query parameters. The map is copied.
func WithQuery(params map[string]string) Option {
	return func(d *Descriptor) { d.query = maps.Clone(params) }
}

// WithHeaders sets request headers. The map is copied.
func WithHeaders(headers map[string]string) Option {
	return func(d *Descriptor) { d.headers = maps.Clone(headers) }
}

// WithPathParams sets the positional values substituted into the path template.
func WithPathParams(params ...string) Option {
	return func(d *Descriptor) { d.pathParams = append([]string(nil), params...) }
}

// WithEncoding selects the body encoding. JSON is the default.
func WithEncoding(enc Encoding) Option {
	return func(d *Descriptor) { d.encoding = enc }
}

// WithAttachments switches the request to a multipart body.
func WithAttachments(files ...Attachment) Option {
	return func(d *Descriptor) { d.attachments = append([]Attachment(nil), files...) }
}

// WithDescription sets the human-readable name used in logs.
func WithDescription(s string) Option {
	return func(d *Descriptor) { d.description = s }
}

// WithHost pins the call to host:port instead of the environment's target
// for the category. port 0 keeps the scheme's default port.
func WithHost(host string, port int) Option {
	return func(d *Descriptor) {
		d.host = host
		d.port = port
	}
}

func (d Descriptor) Category() Category       { return d.category }
func (d Descriptor) Method() string           { return d.method }
func (d Descriptor) PathTemplate() string     { return d.template }
func (d Descriptor) Auth() AuthLevel          { return d.auth }
func (d Descriptor) Encoding() Encoding       { return d.encoding }
func (d Descriptor) HasAttachments() bool     { return len(d.attachments) > 0 }
func (d Descriptor) Body() map[string]any     { return maps.Clone(d.body) }
func (d Descriptor) Query() map[string]string { return maps.Clone(d.query) }
func (d Descriptor) Headers() map[string]string {
	return maps.Clone(d.headers)
}

// String returns the description, or "METHOD template" when none was set.
func (d Descriptor) String() string {
	if d.description != "" {
		return d.description
	}
	return d.method + " " + d.template
}

// ResolvedPath substitutes the positional path parameters into the template.
// Placeholders are {name} segments or %s / %@ verbs. A missing or surplus
// parameter is an EncodingError.
func (d Descriptor) ResolvedPath() (string, error) {
	return resolvePath(d.template, d.pathParams)
}

// Equivalent reports whether a and b describe the same call.
func Equivalent(a, b Descriptor) bool {
	return a.Key() == b.Key()
}

// Key is the canonical identity of the call: equal keys mean equivalent
// descriptors. Attachments and the description do not take part.
func (d Descriptor) Key() string {
	path, err := d.ResolvedPath()
	if err != nil {
		path = "!" + d.template + "|" + strings.Join(d.pathParams, "/")
	}

	var b strings.Builder
	b.WriteString(d.method)
	b.WriteByte(' ')
	b.WriteString(path)
	fmt.Fprintf(&b, "|auth=%d|cat=%s|host=%s:%d", d.auth, d.category, d.host, d.port)
	b.WriteString("|q=")
	b.WriteString(canonicalStrings(d.query, false))
	b.WriteString("|h=")
	b.WriteString(canonicalStrings(d.headers, true))
	b.WriteString("|b=")
	b.WriteString(strings.Join(formComponents(d.body), "&"))
	return b.String()
}

func canonicalStrings(m map[string]string, headerKeys bool) string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		if headerKeys {
			k = http.CanonicalHeaderKey(k)
		}
		parts = append(parts, escape(k)+"="+escape(v))
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}

func resolvePath(template string, params []string) (string, error) {
	path := template
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var (
		b    strings.Builder
		used int
	)
	for i := 0; i < len(path); i++ {
		c := path[i]
		var skip int
		switch {
		case c == '{':
			end := strings.IndexByte(path[i:], '}')
			if end < 0 {
				return "", encodingErr("path", fmt.Errorf("unterminated placeholder in %q", template))
			}
			skip = end
		case c == '%' && i+1 < len(path) && (path[i+1] == 's' || path[i+1] == '@'):
			skip = 1
		default:
			b.WriteByte(c)
			continue
		}
		if used >= len(params) {
			return "", encodingErr("path", fmt.Errorf("missing path parameter %d for %q", used+1, template))
		}
		b.WriteString(escapePathSegment(params[used]))
		used++
		i += skip
	}
	if used != len(params) {
		return "", encodingErr("path", fmt.Errorf("%d path parameters given, %q takes %d", len(params), template, used))
	}
	return b.String(), nil
}
