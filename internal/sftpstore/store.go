// Package sftpstore uploads product images to the remote web server
// over SFTP and derives the public URLs that the catalog records embed.
// One Store connection lives for a whole run.
package sftpstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/mytua/wcsync/internal/retry"
)

// Config holds the SFTP connection and layout settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	// BasePath is the remote directory that maps to the web root
	// subtree images are served from, e.g. /var/www/example.com/images.
	BasePath string

	// WebDomain overrides the domain derived from BasePath for public
	// URLs. Empty means derive, falling back to Host.
	WebDomain string

	// Checksum enables SHA-256 content comparison on top of the size
	// check when deciding whether a remote copy is current.
	Checksum bool

	DialTimeout time.Duration
}

// session is the subset of the SFTP client the store uses; faked in
// tests.
type session interface {
	Stat(path string) (os.FileInfo, error)
	Create(path string) (io.WriteCloser, error)
	Open(path string) (io.ReadCloser, error)
	Mkdir(path string) error
	Chmod(path string, mode os.FileMode) error
	Remove(path string) error
	Close() error
}

type sftpSession struct{ c *sftp.Client }

func (s sftpSession) Stat(path string) (os.FileInfo, error)      { return s.c.Stat(path) }
func (s sftpSession) Create(path string) (io.WriteCloser, error) { return s.c.Create(path) }
func (s sftpSession) Open(path string) (io.ReadCloser, error)    { return s.c.Open(path) }
func (s sftpSession) Mkdir(path string) error                    { return s.c.Mkdir(path) }
func (s sftpSession) Chmod(path string, mode os.FileMode) error  { return s.c.Chmod(path, mode) }
func (s sftpSession) Remove(path string) error                   { return s.c.Remove(path) }
func (s sftpSession) Close() error                               { return s.c.Close() }

// Store is a stateful SFTP connection wrapper.
type Store struct {
	cfg    Config
	policy retry.Policy

	ssh  *ssh.Client
	sftp session
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// New creates a disconnected store. The retry policy governs connection
// attempts; transfer failures stay per-image.
func New(cfg Config, policy retry.Policy) *Store {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &Store{cfg: cfg, policy: policy.WithRetryable(Retryable)}
}

// Domain returns the web domain used for public image URLs.
func (s *Store) Domain() string {
	if s.cfg.WebDomain != "" {
		return s.cfg.WebDomain
	}
	if d := domainFromBasePath(s.cfg.BasePath); d != "" {
		return d
	}
	return s.cfg.Host
}

// Connect dials the server, opens the SFTP session and makes sure the
// base path exists. Network failures are retried per the policy; auth
// and path failures are returned immediately.
func (s *Store) Connect(ctx context.Context) error {
	if s.sftp != nil {
		return nil
	}
	return s.policy.Do(ctx, func() error {
		if err := s.dial(ctx); err != nil {
			return err
		}
		if err := s.ensureRemoteDir(s.cfg.BasePath); err != nil {
			s.Close()
			return &ConnectionError{Kind: PathError, Err: err}
		}
		return nil
	})
}

func (s *Store) dial(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprintf("%d", s.cfg.Port))
	conf := &ssh.ClientConfig{
		User:            s.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(s.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.cfg.DialTimeout,
	}

	client, err := ssh.Dial("tcp", addr, conf)
	if err != nil {
		return classifyDialError(err)
	}

	sess, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return &ConnectionError{Kind: NetworkError, Err: err}
	}

	s.ssh = client
	s.sftp = sftpSession{c: sess}
	return nil
}

func classifyDialError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "handshake failed") {
		return &ConnectionError{Kind: AuthError, Err: err}
	}
	return &ConnectionError{Kind: NetworkError, Err: err}
}

// Close releases both sessions. Safe to call on a disconnected store.
func (s *Store) Close() error {
	var first error
	if s.sftp != nil {
		first = s.sftp.Close()
		s.sftp = nil
	}
	if s.ssh != nil {
		if err := s.ssh.Close(); err != nil && first == nil {
			first = err
		}
		s.ssh = nil
	}
	return first
}

// TestConnection is the diagnostic used by `wcsync check`: connect,
// stat the base path, disconnect. No catalog state is touched.
func (s *Store) TestConnection(ctx context.Context) error {
	wasConnected := s.sftp != nil
	if err := s.Connect(ctx); err != nil {
		return err
	}
	if _, err := s.sftp.Stat(s.cfg.BasePath); err != nil {
		return &ConnectionError{Kind: PathError, Err: err}
	}
	if !wasConnected {
		return s.Close()
	}
	return nil
}

// EnsureUploaded transfers the file unless an identical remote copy
// already exists, and returns its public URL. Identity is a size match,
// plus a SHA-256 match when checksums are enabled. force always
// re-transfers.
func (s *Store) EnsureUploaded(ctx context.Context, localPath, remoteDir string, force bool) (string, error) {
	if err := s.Connect(ctx); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	localPath, err := filepath.Abs(localPath)
	if err != nil {
		return "", &UploadError{Path: localPath, Err: err}
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return "", &UploadError{Path: localPath, Err: err}
	}

	stem, ext := splitExt(filepath.Base(localPath))
	remoteName := CleanFilename(stem) + strings.ToLower(ext)

	dir := joinRemote(s.cfg.BasePath, remoteDir)
	if err := s.ensureRemoteDir(dir); err != nil {
		return "", &ConnectionError{Kind: PathError, Err: err}
	}
	remotePath := joinRemote(dir, remoteName)

	current, err := s.remoteCurrent(localPath, remotePath, info.Size())
	if err != nil {
		return "", err
	}
	if current && !force {
		return s.publicURL(remoteDir, remoteName), nil
	}

	if err := s.transfer(localPath, remotePath); err != nil {
		return "", err
	}
	return s.publicURL(remoteDir, remoteName), nil
}

// remoteCurrent reports whether the remote copy already matches the
// local file.
func (s *Store) remoteCurrent(localPath, remotePath string, localSize int64) (bool, error) {
	stat, err := s.sftp.Stat(remotePath)
	if err != nil {
		return false, nil // not present
	}
	if stat.Size() != localSize {
		return false, nil
	}
	if !s.cfg.Checksum {
		return true, nil
	}

	localSum, err := fileChecksum(localPath)
	if err != nil {
		return false, &UploadError{Path: localPath, Err: err}
	}
	remoteSum, err := s.remoteChecksum(remotePath)
	if err != nil {
		return false, &UploadError{Path: remotePath, Err: err}
	}
	return localSum == remoteSum, nil
}

func (s *Store) transfer(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return &UploadError{Path: localPath, Err: err}
	}
	defer src.Close()

	dst, err := s.sftp.Create(remotePath)
	if err != nil {
		return &UploadError{Path: remotePath, Err: err}
	}

	written, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.sftp.Remove(remotePath) // do not leave a partial file behind
		return &UploadError{Path: remotePath, Err: err}
	}

	// World-readable so the web server can serve it.
	if err := s.sftp.Chmod(remotePath, 0o644); err != nil {
		return &UploadError{Path: remotePath, Err: err}
	}

	stat, err := s.sftp.Stat(remotePath)
	if err != nil {
		return &UploadError{Path: remotePath, Err: err}
	}
	if stat.Size() != written {
		return &UploadError{Path: remotePath, Err: fmt.Errorf("size mismatch after upload: %d != %d", stat.Size(), written)}
	}
	return nil
}

// UploadDirectory mirrors a local image tree under the base path and
// returns filename → public URL for everything transferred. Used by
// `wcsync images upload`; failures are collected, not fatal.
func (s *Store) UploadDirectory(ctx context.Context, localDir, remoteDir string) (map[string]string, []error) {
	urls := make(map[string]string)
	var errs []error

	walkErr := filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		rel, err := filepath.Rel(localDir, filepath.Dir(p))
		if err != nil {
			rel = "."
		}
		dir := remoteDir
		if rel != "." {
			dir = joinRemote(remoteDir, filepath.ToSlash(rel))
		}

		url, err := s.EnsureUploaded(ctx, p, dir, false)
		if err != nil {
			if Fatal(err) {
				return err
			}
			errs = append(errs, err)
			return nil
		}
		urls[d.Name()] = url
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return urls, errs
}

// ensureRemoteDir creates each missing path segment, mkdir -p style.
func (s *Store) ensureRemoteDir(remotePath string) error {
	current := ""
	for _, part := range strings.Split(strings.Trim(remotePath, "/"), "/") {
		if part == "" {
			continue
		}
		current = joinRemote(current, part)
		if _, err := s.sftp.Stat(current); err == nil {
			continue
		}
		if err := s.sftp.Mkdir(current); err != nil {
			// A parallel upload may have created it first.
			if _, statErr := s.sftp.Stat(current); statErr != nil {
				return fmt.Errorf("mkdir %s: %w", current, err)
			}
		}
	}
	if _, err := s.sftp.Stat(remotePath); err != nil {
		return fmt.Errorf("confirm %s: %w", remotePath, err)
	}
	return nil
}

func (s *Store) publicURL(remoteDir, filename string) string {
	domain := s.Domain()
	return "https://" + domain + webPath(s.cfg.BasePath, domain, remoteDir, filename)
}

func (s *Store) remoteChecksum(remotePath string) (string, error) {
	f, err := s.sftp.Open(remotePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
