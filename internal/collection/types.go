package collection

import (
	"time"

	"github.com/google/uuid"
)

type ItemType string

const (
	TypeFolder  ItemType = "folder"
	TypeRequest ItemType = "request"
)

type FieldType string

const (
	FieldText FieldType = "text"
	FieldFile FieldType = "file"
)

// KeyValue is the shared row shape for headers, query params, form fields
// and environment variables. Disabled rows stay in the slice.
type KeyValue struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Type        FieldType `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"isEnabled"`
}

func NewKeyValue(key, value string) KeyValue {
	return KeyValue{ID: NewID(), Key: key, Value: value, Enabled: true}
}

func (kv KeyValue) Active() bool {
	return kv.Enabled && kv.Key != ""
}

func (kv KeyValue) IsFile() bool {
	return kv.Type == FieldFile
}

type BodyType string

const (
	BodyNone       BodyType = "none"
	BodyRaw        BodyType = "raw"
	BodyFormData   BodyType = "form-data"
	BodyURLEncoded BodyType = "x-www-form-urlencoded"
	BodyBinary     BodyType = "binary"
	BodyGraphQL    BodyType = "graphql"
)

type RawType string

const (
	RawText       RawType = "text"
	RawJSON       RawType = "json"
	RawXML        RawType = "xml"
	RawHTML       RawType = "html"
	RawJavaScript RawType = "javascript"
)

type GraphQL struct {
	Query     string `json:"query"`
	Variables string `json:"variables,omitempty"`
}

// Body is a tagged union: only the field matching Type is read.
type Body struct {
	Type       BodyType   `json:"type"`
	Raw        string     `json:"raw,omitempty"`
	RawType    RawType    `json:"rawType,omitempty"`
	FormData   []KeyValue `json:"formData,omitempty"`
	URLEncoded []KeyValue `json:"urlencoded,omitempty"`
	Binary     string     `json:"binary,omitempty"`
	GraphQL    *GraphQL   `json:"graphql,omitempty"`
}

func (b Body) Kind() BodyType {
	if b.Type == "" {
		return BodyNone
	}
	return b.Type
}

type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apikey"
)

// Auth params use lower-case keys: username and password (basic), token
// (bearer), name, value and placement (apikey, placement "query" or "header").
type Auth struct {
	Type   AuthType          `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// ExampleRequest freezes the request configuration that produced an example.
type ExampleRequest struct {
	Method      string     `json:"method"`
	URL         string     `json:"url"`
	QueryParams []KeyValue `json:"queryParams,omitempty"`
	Headers     []KeyValue `json:"headers,omitempty"`
	Body        Body       `json:"body"`
}

type Example struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Status      int             `json:"status"`
	Body        string          `json:"body"`
	ContentType string          `json:"contentType,omitempty"`
	Request     *ExampleRequest `json:"request,omitempty"`
}

// ResponseRecord is the summary kept in a request's response history.
type ResponseRecord struct {
	Status     int       `json:"status"`
	StatusText string    `json:"statusText"`
	DurationMS int64     `json:"duration"`
	Size       int64     `json:"size"`
	Timestamp  time.Time `json:"timestamp"`
}

type Request struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	ParentID        string           `json:"parentId,omitempty"`
	Method          string           `json:"method"`
	URL             string           `json:"url"`
	Headers         []KeyValue       `json:"headers"`
	QueryParams     []KeyValue       `json:"queryParams"`
	Body            Body             `json:"body"`
	Auth            *Auth            `json:"auth,omitempty"`
	Description     string           `json:"description,omitempty"`
	Examples        []Example        `json:"examples"`
	ResponseHistory []ResponseRecord `json:"responseHistory"`
}

// Snapshot captures the parts of r an example needs to reproduce it.
func (r *Request) Snapshot() *ExampleRequest {
	if r == nil {
		return nil
	}
	return &ExampleRequest{
		Method:      r.Method,
		URL:         r.URL,
		QueryParams: cloneKeyValues(r.QueryParams),
		Headers:     cloneKeyValues(r.Headers),
		Body:        cloneBody(r.Body),
	}
}

type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Children []Item `json:"children"`
}

type Environment struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Variables []KeyValue `json:"variables"`
	Active    bool       `json:"isActive"`
}

func NewID() string {
	return uuid.NewString()
}

func NewRequest(name, method, url string) *Request {
	return &Request{
		ID:     NewID(),
		Name:   name,
		Method: method,
		URL:    url,
		Body:   Body{Type: BodyNone},
	}
}

func NewFolder(name string, children ...Item) *Folder {
	return &Folder{ID: NewID(), Name: name, Children: children}
}
