package connect

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/unkn0wn-root/wsterm/internal/cookies"
	"github.com/unkn0wn-root/wsterm/internal/errdef"
	"github.com/unkn0wn-root/wsterm/internal/urlutil"
	"github.com/unkn0wn-root/wsterm/internal/vars"
	"github.com/unkn0wn-root/wsterm/internal/wsfile"
)

// Command is a fully resolved open-connection request. It is built fresh per
// submit and handed to the transport; nothing here points back into the
// workspace document.
type Command struct {
	RequestID         string
	WorkspaceID       string
	URL               string
	Headers           []wsfile.HeaderEntry
	Jar               *cookies.Jar
	SuppressUserAgent bool
	Options           wsfile.WebSocketOptions
}

// Resolve interpolates URL, headers, authentication and enabled query
// parameters against the resolver, then joins the query string onto the
// expanded base URL. Any unresolved template aborts with a vars error and no
// command is produced.
func Resolve(
	req *wsfile.Request,
	workspaceID string,
	resolver *vars.Resolver,
	jar *cookies.Jar,
) (*Command, error) {
	if req == nil {
		return nil, errdef.New(errdef.CodeParse, "request is nil")
	}

	base := strings.TrimSpace(req.URL)
	if base == "" {
		return nil, errdef.New(errdef.CodeParse, "request url is empty")
	}

	expandedURL, err := resolver.ExpandTemplates(base)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeVars, err, "expand url")
	}

	headers, err := resolveHeaders(req.Headers, resolver)
	if err != nil {
		return nil, err
	}

	params := make([]wsfile.QueryParam, 0, len(req.Params))
	for _, param := range req.EnabledParams() {
		key, err := resolver.ExpandTemplates(param.Key)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeVars, err, "expand parameter %q", param.Key)
		}
		value, err := resolver.ExpandTemplates(param.Value)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeVars, err, "expand parameter %q", param.Key)
		}
		params = append(params, wsfile.QueryParam{Key: key, Value: value})
	}

	headers, params, err = applyAuth(req.Auth, resolver, headers, params)
	if err != nil {
		return nil, err
	}

	finalURL := urlutil.JoinURLAndQueryString(expandedURL, urlutil.BuildQueryString(params))
	if _, err := url.Parse(finalURL); err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "invalid resolved url %q", finalURL)
	}

	return &Command{
		RequestID:         req.ID,
		WorkspaceID:       workspaceID,
		URL:               finalURL,
		Headers:           headers,
		Jar:               jar,
		SuppressUserAgent: req.SuppressUserAgent,
		Options:           req.Options,
	}, nil
}

func resolveHeaders(
	in []wsfile.HeaderEntry,
	resolver *vars.Resolver,
) ([]wsfile.HeaderEntry, error) {
	out := make([]wsfile.HeaderEntry, 0, len(in))
	for _, entry := range in {
		if entry.Disabled {
			continue
		}
		value, err := resolver.ExpandTemplates(entry.Value)
		if err != nil {
			return nil, errdef.Wrap(errdef.CodeVars, err, "expand header %q", entry.Name)
		}
		out = append(out, wsfile.HeaderEntry{Name: entry.Name, Value: value})
	}
	return out, nil
}

func applyAuth(
	auth *wsfile.AuthSpec,
	resolver *vars.Resolver,
	headers []wsfile.HeaderEntry,
	params []wsfile.QueryParam,
) ([]wsfile.HeaderEntry, []wsfile.QueryParam, error) {
	if auth == nil || len(auth.Params) == 0 {
		return headers, params, nil
	}

	expand := func(value string) (string, error) {
		if value == "" {
			return "", nil
		}
		expanded, err := resolver.ExpandTemplates(value)
		if err != nil {
			return "", errdef.Wrap(errdef.CodeVars, err, "expand auth value")
		}
		return expanded, nil
	}

	switch strings.ToLower(auth.Type) {
	case "basic":
		user, err := expand(auth.Params["username"])
		if err != nil {
			return nil, nil, err
		}
		pass, err := expand(auth.Params["password"])
		if err != nil {
			return nil, nil, err
		}
		credentials := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		headers = setHeader(headers, "Authorization", "Basic "+credentials)
	case "bearer":
		token, err := expand(auth.Params["token"])
		if err != nil {
			return nil, nil, err
		}
		headers = setHeader(headers, "Authorization", "Bearer "+token)
	case "apikey", "api-key":
		name, err := expand(auth.Params["name"])
		if err != nil {
			return nil, nil, err
		}
		value, err := expand(auth.Params["value"])
		if err != nil {
			return nil, nil, err
		}
		if strings.ToLower(auth.Params["placement"]) == "query" {
			params = append(params, wsfile.QueryParam{Key: name, Value: value})
		} else {
			if name == "" {
				name = "X-API-Key"
			}
			headers = setHeader(headers, name, value)
		}
	case "header":
		name, err := expand(auth.Params["header"])
		if err != nil {
			return nil, nil, err
		}
		value, err := expand(auth.Params["value"])
		if err != nil {
			return nil, nil, err
		}
		if name != "" {
			headers = setHeader(headers, name, value)
		}
	}
	return headers, params, nil
}

// setHeader leaves an explicit request header in place rather than letting
// auth clobber it, matching how explicit Authorization headers win elsewhere.
func setHeader(headers []wsfile.HeaderEntry, name, value string) []wsfile.HeaderEntry {
	for _, entry := range headers {
		if strings.EqualFold(entry.Name, name) {
			return headers
		}
	}
	return append(headers, wsfile.HeaderEntry{Name: name, Value: value})
}
