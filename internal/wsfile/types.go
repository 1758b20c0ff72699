package wsfile

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Workspace is the unit of persistence for requests. Cookie jars and history
// entries key off its ID.
type Workspace struct {
	ID       string     `yaml:"id"`
	Name     string     `yaml:"name"`
	Requests []*Request `yaml:"requests"`

	// Path the workspace was loaded from; not serialized.
	Path string `yaml:"-"`
}

// Request describes one templated WebSocket connection. The composer reads it
// and forwards a resolved copy; it is never mutated during submit.
type Request struct {
	ID                string           `yaml:"id"`
	Name              string           `yaml:"name"`
	URL               string           `yaml:"url"`
	Headers           []HeaderEntry    `yaml:"headers,omitempty"`
	Params            []QueryParam     `yaml:"params,omitempty"`
	Auth              *AuthSpec        `yaml:"auth,omitempty"`
	SuppressUserAgent bool             `yaml:"suppress_user_agent,omitempty"`
	Options           WebSocketOptions `yaml:"options,omitempty"`
}

// HeaderEntry keeps declaration order, unlike a map.
type HeaderEntry struct {
	Name     string `yaml:"name"`
	Value    string `yaml:"value"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// QueryParam with Disabled set stays in the document but never reaches the
// resolved query string.
type QueryParam struct {
	Key      string `yaml:"key"`
	Value    string `yaml:"value"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

type AuthSpec struct {
	Type   string            `yaml:"type"`
	Params map[string]string `yaml:"params,omitempty"`
}

type WebSocketOptions struct {
	Subprotocols     []string      `yaml:"subprotocols,omitempty"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout,omitempty"`
	IdleTimeout      time.Duration `yaml:"idle_timeout,omitempty"`
	MaxMessageBytes  int64         `yaml:"max_message_bytes,omitempty"`
	Compression      bool          `yaml:"compression,omitempty"`
	CompressionSet   bool          `yaml:"-"`
}

// UnmarshalYAML records whether the compression key appeared in the document.
// The dialer's zero compression mode still negotiates, so "compression: false"
// and an absent key are different states.
func (o *WebSocketOptions) UnmarshalYAML(value *yaml.Node) error {
	type plain WebSocketOptions
	var decoded plain
	if err := value.Decode(&decoded); err != nil {
		return err
	}
	*o = WebSocketOptions(decoded)

	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "compression" {
			o.CompressionSet = true
		}
	}
	return nil
}

// FindRequest returns the request with the given id, or nil.
func (w *Workspace) FindRequest(id string) *Request {
	if w == nil || id == "" {
		return nil
	}
	for _, req := range w.Requests {
		if req != nil && req.ID == id {
			return req
		}
	}
	return nil
}

// Clone returns a deep copy so resolution can never alias the stored request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	dup := *r
	dup.Headers = append([]HeaderEntry(nil), r.Headers...)
	dup.Params = append([]QueryParam(nil), r.Params...)
	if r.Auth != nil {
		auth := *r.Auth
		auth.Params = make(map[string]string, len(r.Auth.Params))
		for k, v := range r.Auth.Params {
			auth.Params[k] = v
		}
		dup.Auth = &auth
	}
	dup.Options.Subprotocols = append([]string(nil), r.Options.Subprotocols...)
	return &dup
}

// EnabledParams filters out disabled query parameters, preserving order.
func (r *Request) EnabledParams() []QueryParam {
	if r == nil || len(r.Params) == 0 {
		return nil
	}
	out := make([]QueryParam, 0, len(r.Params))
	for _, param := range r.Params {
		if param.Disabled {
			continue
		}
		out = append(out, param)
	}
	return out
}
