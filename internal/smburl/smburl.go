// Copyright 2025 ShareFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package smburl parses sharefs connection URLs of the form
//
//	smb://[domain;][user[:password]@]host[:port]/share[/path][?sec=ntlmssp|krb5cc]
//
// into an immutable Endpoint plus the initial anchor path.
package smburl

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"sharefs/internal/common"
)

// AuthMode selects how the session authenticates to the server.
type AuthMode string

const (
	// AuthAnonymous is a guest/null session; chosen when sec is absent.
	AuthAnonymous AuthMode = "anonymous"
	// AuthNTLMSSP authenticates with the credentials embedded in the URL.
	AuthNTLMSSP AuthMode = "ntlmssp"
	// AuthKrb5CC authenticates from a Kerberos credential cache plus the
	// SMB_USER/SMB_PASSWORD/SMB_DOMAIN environment.
	AuthKrb5CC AuthMode = "krb5cc"
)

// DefaultPort is the SMB direct-TCP port.
const DefaultPort = 445

// Environment variables consulted for sec=krb5cc.
const (
	EnvUser     = "SMB_USER"
	EnvPassword = "SMB_PASSWORD"
	EnvDomain   = "SMB_DOMAIN"
)

// Endpoint is the canonical identity of a connection target. All fields
// participate in identity; two endpoints with equal Key() share a context.
type Endpoint struct {
	Host       string
	Port       int
	Share      string
	Mode       AuthMode
	Domain     string
	User       string
	Password   string
	CCachePath string
}

// Address returns the host:port dial target.
func (e *Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Key returns the canonical identity string used by the context pool.
func (e *Endpoint) Key() string {
	return strings.Join([]string{
		e.Host, strconv.Itoa(e.Port), e.Share,
		string(e.Mode), e.Domain, e.User, e.Password, e.CCachePath,
	}, "\x00")
}

// Equal reports whether o names the same endpoint.
func (e *Endpoint) Equal(o *Endpoint) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Key() == o.Key()
}

// Redacted renders the endpoint for logs, omitting the password.
func (e *Endpoint) Redacted() string {
	userinfo := ""
	if e.User != "" {
		userinfo = e.User + "@"
	}
	return fmt.Sprintf("smb://%s%s/%s", userinfo, e.Address(), e.Share)
}

// Parse decodes a connection URL into an Endpoint and the initial anchor
// path below the share. It fails with KindInvalidURL on malformed input and
// with KindInvalidAuth when the requested security mode lacks its inputs.
func Parse(raw string) (*Endpoint, common.PathRef, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, nil, common.WrapError(common.KindInvalidURL, fmt.Sprintf("invalid SMB URL %q", raw), err)
	}
	if u.Scheme != "smb" {
		return nil, nil, common.Errorf(common.KindInvalidURL, "invalid SMB URL %q: scheme must be smb", raw)
	}
	if u.Hostname() == "" {
		return nil, nil, common.Errorf(common.KindInvalidURL, "invalid SMB URL %q: missing host", raw)
	}

	ep := &Endpoint{Host: u.Hostname(), Port: DefaultPort}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, nil, common.Errorf(common.KindInvalidURL, "invalid SMB URL %q: bad port %q", raw, p)
		}
		ep.Port = port
	}

	segments := common.SplitPath(u.Path)
	if len(segments) == 0 {
		return nil, nil, common.Errorf(common.KindInvalidURL, "invalid SMB URL %q: missing share name", raw)
	}
	ep.Share = segments[0]
	anchor := common.PathRef(segments[1:])

	if u.User != nil {
		ep.User = u.User.Username()
		ep.Password, _ = u.User.Password()
		// A "domain;user" prefix in the userinfo selects the NT domain.
		if domain, user, ok := strings.Cut(ep.User, ";"); ok {
			ep.Domain = domain
			ep.User = user
		}
	}

	switch sec := u.Query().Get("sec"); sec {
	case "":
		ep.Mode = AuthAnonymous
	case "ntlmssp":
		ep.Mode = AuthNTLMSSP
		if ep.User == "" {
			return nil, nil, common.Errorf(common.KindInvalidAuth, "sec=ntlmssp requires a user in the URL")
		}
	case "krb5cc":
		ep.Mode = AuthKrb5CC
		if err := resolveKrb5(ep); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, common.Errorf(common.KindInvalidAuth, "unsupported security mode %q", sec)
	}

	return ep, anchor, nil
}

// resolveKrb5 fills the credential bundle for sec=krb5cc from the
// environment and the Kerberos credential cache.
func resolveKrb5(ep *Endpoint) error {
	ep.User = os.Getenv(EnvUser)
	ep.Password = os.Getenv(EnvPassword)
	ep.Domain = os.Getenv(EnvDomain)

	path, err := resolveCCachePath()
	if err != nil {
		return err
	}
	user, realm, err := loadCCache(path)
	if err != nil {
		return err
	}
	ep.CCachePath = path
	if ep.User == "" {
		ep.User = user
	}
	if ep.Domain == "" {
		ep.Domain = realm
	}
	if ep.User == "" {
		return common.Errorf(common.KindInvalidAuth, "sec=krb5cc: no principal in %s and %s unset", path, EnvUser)
	}
	return nil
}
