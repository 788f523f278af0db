package endpoint

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	apierrors "github.com/Theruz/8aAscents/client/internal/errors"
)

// Target is where a category's endpoints are served.
type Target struct {
	Scheme string `yaml:"scheme"`
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
}

// Request is the canonical transport form of a descriptor.
type Request struct {
	Method      string
	URL         *url.URL
	Header      http.Header
	Body        []byte
	ContentType string

	// Multipart requests carry Form and Attachments instead of Body.
	Form        map[string]string
	Attachments []Attachment
}

// Multipart reports whether the request must be sent as multipart/form-data.
func (r *Request) Multipart() bool { return len(r.Attachments) > 0 }

// Encode builds the transport request against target. A host pinned with
// WithHost overrides target's host and port.
func (d Descriptor) Encode(target Target) (*Request, error) {
	path, err := d.ResolvedPath()
	if err != nil {
		return nil, err
	}

	host, port := target.Host, target.Port
	if d.host != "" {
		host, port = d.host, d.port
	}
	if host == "" {
		return nil, encodingErr("url", fmt.Errorf("no host for category %q", d.category))
	}
	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}
	if port > 0 {
		host = net.JoinHostPort(host, strconv.Itoa(port))
	}

	u := &url.URL{Scheme: scheme, Host: host, Path: path}
	if len(d.query) > 0 {
		q := url.Values{}
		for k, v := range d.query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	req := &Request{
		Method: d.method,
		URL:    u,
		Header: http.Header{},
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	if d.HasAttachments() {
		req.Form = make(map[string]string, len(d.body))
		for _, c := range formComponents(d.body) {
			k, v, _ := strings.Cut(c, "=")
			uk, _ := url.QueryUnescape(k)
			uv, _ := url.QueryUnescape(v)
			req.Form[uk] = uv
		}
		req.Attachments = append([]Attachment(nil), d.attachments...)
		return req, nil
	}

	if len(d.body) == 0 {
		return req, nil
	}
	switch d.encoding {
	case EncodingForm:
		req.Body = []byte(strings.Join(formComponents(d.body), "&"))
		req.ContentType = "application/x-www-form-urlencoded; charset=utf-8"
	default:
		body, err := json.Marshal(d.body)
		if err != nil {
			return nil, encodingErr("body", err)
		}
		req.Body = body
		req.ContentType = "application/json"
	}
	return req, nil
}

// formComponents flattens params the way a URL-encoded form does:
// nested maps become key[sub]=v, slices key[]=v, booleans 1/0.
// The result is sorted, which makes it the canonical body form.
func formComponents(params map[string]any) []string {
	var out []string
	for k, v := range params {
		out = appendComponents(out, k, v)
	}
	sort.Strings(out)
	return out
}

func appendComponents(out []string, key string, value any) []string {
	if value == nil {
		return append(out, escape(key)+"=")
	}
	switch v := value.(type) {
	case map[string]any:
		for sub, sv := range v {
			out = appendComponents(out, key+"["+sub+"]", sv)
		}
		return out
	case []any:
		for _, sv := range v {
			out = appendComponents(out, key+"[]", sv)
		}
		return out
	case bool:
		if v {
			return append(out, escape(key)+"=1")
		}
		return append(out, escape(key)+"=0")
	case string:
		return append(out, escape(key)+"="+escape(v))
	case json.Number:
		return append(out, escape(key)+"="+escape(v.String()))
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			out = appendComponents(out, key+"[]", rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			iter := rv.MapRange()
			for iter.Next() {
				out = appendComponents(out, key+"["+iter.Key().String()+"]", iter.Value().Interface())
			}
			return out
		}
	}
	return append(out, escape(key)+"="+escape(fmt.Sprint(value)))
}

func escape(s string) string { return url.QueryEscape(s) }

func escapePathSegment(s string) string { return url.PathEscape(s) }

func encodingErr(op string, err error) error {
	return &apierrors.EncodingError{Op: op, Err: err}
}
