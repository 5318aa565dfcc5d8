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

package smburl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jcmturner/gokrb5/v8/credentials"

	"sharefs/internal/common"
)

// EnvCCache overrides the credential cache location, MIT style.
const EnvCCache = "KRB5CCNAME"

// resolveCCachePath locates the Kerberos credential cache: KRB5CCNAME
// (with an optional FILE: prefix) or the conventional /tmp/krb5cc_<uid>.
func resolveCCachePath() (string, error) {
	if name := os.Getenv(EnvCCache); name != "" {
		typ, rest, ok := strings.Cut(name, ":")
		if !ok {
			return name, nil
		}
		if typ != "FILE" {
			return "", common.Errorf(common.KindInvalidAuth, "unsupported credential cache type %q in %s", typ, EnvCCache)
		}
		return rest, nil
	}
	return "/tmp/krb5cc_" + strconv.Itoa(os.Getuid()), nil
}

// loadCCache parses the cache and returns the default client principal
// and realm. A missing or malformed cache is an auth failure.
func loadCCache(path string) (user, realm string, err error) {
	cc, err := credentials.LoadCCache(path)
	if err != nil {
		return "", "", common.WrapError(common.KindInvalidAuth,
			fmt.Sprintf("cannot load Kerberos credential cache %s", path), err)
	}
	return cc.GetClientPrincipalName().PrincipalNameString(), cc.GetClientRealm(), nil
}
