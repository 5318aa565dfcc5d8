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

package backend

import (
	"context"
	"io"
	"net"
	"os"
	"strings"
	"time"

	smb2 "github.com/hirochachacha/go-smb2"
	log "github.com/sirupsen/logrus"

	"sharefs/internal/smburl"
)

// readdirBatch is how many entries one enumeration round trip fetches.
const readdirBatch = 128

// dialTimeout bounds the TCP connect. No deadline is set on the
// connection, so SMB negotiation is not bounded by it.
const dialTimeout = 30 * time.Second

type smbBackend struct {
	conn   net.Conn
	client *smb2.Client
	share  *smb2.RemoteFileSystem
	maxIO  int
}

// DialSMB2 connects, negotiates and mounts the endpoint's share over the
// pure-Go SMB2 client. Kerberos mode authenticates NTLMSSP with the
// credentials resolved from the ticket cache and environment; the cache
// was already validated at URL-parse time.
func DialSMB2(ctx context.Context, ep *smburl.Endpoint) (Backend, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.Address())
	if err != nil {
		return nil, err
	}

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     ep.User,
			Password: ep.Password,
			Domain:   ep.Domain,
		},
	}
	client, err := d.Dial(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	share, err := client.Mount(ep.Share)
	if err != nil {
		client.Logoff()
		conn.Close()
		return nil, err
	}
	log.Debugf("[SMB] mounted %s", ep.Redacted())
	return &smbBackend{conn: conn, client: client, share: share, maxIO: DefaultMaxIOSize}, nil
}

// smbPath converts a share-relative "/" path to the wire form.
func smbPath(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}

func (b *smbBackend) Stat(path string) (Stat, error) {
	fi, err := b.share.Stat(smbPath(path))
	if err != nil {
		return Stat{}, err
	}
	return statOfInfo(fi), nil
}

func statOfInfo(fi os.FileInfo) Stat {
	st := Stat{
		Size:         fi.Size(),
		CreationTime: fi.ModTime(),
		ModifiedTime: fi.ModTime(),
		AccessedTime: fi.ModTime(),
		Kind:         KindFile,
	}
	if fi.IsDir() {
		st.Kind = KindDirectory
	}
	if rs, ok := fi.Sys().(*smb2.RemoteFileStat); ok {
		st.CreationTime = rs.CreationTime
		st.AccessedTime = rs.LastAccessTime
	}
	return st
}

func (b *smbBackend) OpenDir(path string) (Dir, error) {
	fi, err := b.share.Stat(smbPath(path))
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, ErrNotDirectory
	}
	f, err := b.share.Open(smbPath(path))
	if err != nil {
		return nil, err
	}
	return &smbCursor{f: f}, nil
}

func (b *smbBackend) Open(path string, mode OpenMode) (File, error) {
	flag := os.O_RDONLY
	switch mode {
	case OpenWriteKeep:
		flag = os.O_RDWR
	case OpenWriteTruncate:
		flag = os.O_RDWR | os.O_TRUNC
	}
	f, err := b.share.OpenFile(smbPath(path), flag, 0666)
	if err != nil {
		return nil, err
	}
	return &smbFile{f: f}, nil
}

func (b *smbBackend) Create(path string) (File, error) {
	f, err := b.share.Create(smbPath(path))
	if err != nil {
		return nil, err
	}
	return &smbFile{f: f}, nil
}

func (b *smbBackend) Mkdir(path string) error {
	return b.share.Mkdir(smbPath(path), 0775)
}

func (b *smbBackend) Rmdir(path string) error {
	return b.share.Remove(smbPath(path))
}

func (b *smbBackend) Unlink(path string) error {
	return b.share.Remove(smbPath(path))
}

func (b *smbBackend) Truncate(path string, size int64) error {
	return b.share.Truncate(smbPath(path), size)
}

func (b *smbBackend) MaxReadSize() int  { return b.maxIO }
func (b *smbBackend) MaxWriteSize() int { return b.maxIO }

func (b *smbBackend) Close() error {
	err := b.share.Umount()
	if lerr := b.client.Logoff(); err == nil {
		err = lerr
	}
	if cerr := b.conn.Close(); err == nil {
		err = cerr
	}
	return err
}

type smbCursor struct {
	f    *smb2.RemoteFile
	buf  []os.FileInfo
	idx  int
	done bool
}

func (c *smbCursor) Next() (DirEntry, error) {
	for c.idx >= len(c.buf) {
		if c.done {
			return DirEntry{}, io.EOF
		}
		fis, err := c.f.Readdir(readdirBatch)
		if err == io.EOF || (err == nil && len(fis) == 0) {
			c.done = true
			return DirEntry{}, io.EOF
		}
		if err != nil {
			return DirEntry{}, err
		}
		c.buf, c.idx = fis, 0
	}
	fi := c.buf[c.idx]
	c.idx++
	kind := KindFile
	if fi.IsDir() {
		kind = KindDirectory
	}
	return DirEntry{Name: fi.Name(), Kind: kind, Size: fi.Size(), ModifiedTime: fi.ModTime()}, nil
}

func (c *smbCursor) Close() error {
	return c.f.Close()
}

type smbFile struct {
	f *smb2.RemoteFile
}

func (f *smbFile) Stat() (Stat, error) {
	fi, err := f.f.Stat()
	if err != nil {
		return Stat{}, err
	}
	return statOfInfo(fi), nil
}

func (f *smbFile) ReadAt(p []byte, off int64) (int, error) {
	return f.f.ReadAt(p, off)
}

func (f *smbFile) WriteAt(p []byte, off int64) (int, error) {
	return f.f.WriteAt(p, off)
}

func (f *smbFile) Truncate(size int64) error {
	return f.f.Truncate(size)
}

func (f *smbFile) Close() error {
	return f.f.Close()
}
