package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gopasspw/gopass/pkg/appdir"
	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const defaultSSHPort = "22"

// SSHConfig describes how to reach and authenticate against a remote host.
type SSHConfig struct {
	// Host is "host" or "host:port".
	Host string
	User string

	// Agent enables authentication through the agent at $SSH_AUTH_SOCK.
	Agent bool
	// KeyFile is a private key file. A leading "~/" is expanded.
	KeyFile  string
	Password string

	// KnownHosts lists known_hosts files. Defaults to ~/.ssh/known_hosts.
	KnownHosts []string
	// Insecure disables host key verification.
	Insecure bool

	Timeout time.Duration
	// SudoCommand elevates privileged operations on the remote host.
	// Defaults to DefaultSudoCommand.
	SudoCommand string
}

// ParseHost splits "[user@]host[:port]" into the user and "host:port".
func ParseHost(s string) (string, string) {
	user := ""
	if i := strings.LastIndex(s, "@"); i >= 0 {
		user, s = s[:i], s[i+1:]
	}
	if _, _, err := net.SplitHostPort(s); err != nil {
		s = net.JoinHostPort(strings.Trim(s, "[]"), defaultSSHPort)
	}

	return user, s
}

// SSH is a transport for files on a remote host. Unprivileged access uses
// SFTP, privileged access runs commands through the remote sudo.
type SSH struct {
	sftp *sftp.Client
	run  Runner
	sudo Runner

	// TempDir holds uploads for privileged writes. Defaults to "/tmp".
	TempDir string

	closers []io.Closer
}

// NewSSH returns a transport on top of an SFTP client and a Runner executing
// commands on the same host. Privileged commands are prefixed with sudoCommand;
// an empty one runs them unchanged.
func NewSSH(client *sftp.Client, run Runner, sudoCommand string) (*SSH, error) {
	sudo, err := NewSudo(run, sudoCommand)
	if err != nil {
		return nil, err
	}

	return &SSH{
		sftp:    client,
		run:     run,
		sudo:    sudo,
		TempDir: "/tmp",
		closers: []io.Closer{client},
	}, nil
}

// DialSSH connects to the host in cfg and opens an SFTP session.
func DialSSH(ctx context.Context, cfg SSHConfig) (*SSH, error) {
	user, addr := ParseHost(cfg.Host)
	if cfg.User != "" && user == "" {
		user = cfg.User
	}
	if user == "" {
		user = os.Getenv("USER")
	}

	auth, closer, err := sshAuth(cfg)
	if err != nil {
		return nil, err
	}

	hostKeys, err := hostKeyCallback(cfg)
	if err != nil {
		closeAll(closer)

		return nil, err
	}

	clientCfg := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         cfg.Timeout,
	}

	d := net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeAll(closer)

		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		_ = conn.Close()
		closeAll(closer)

		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)

	sc, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		closeAll(closer)

		return nil, fmt.Errorf("failed to start sftp on %s: %w", addr, err)
	}

	sudoCommand := cfg.SudoCommand
	if sudoCommand == "" {
		sudoCommand = DefaultSudoCommand
	}

	t, err := NewSSH(sc, NewSessionRunner(client), sudoCommand)
	if err != nil {
		_ = sc.Close()
		_ = client.Close()
		closeAll(closer)

		return nil, err
	}
	t.closers = append(t.closers, client)
	if closer != nil {
		t.closers = append(t.closers, closer)
	}

	debug.Log("connected to %s@%s", user, addr)

	return t, nil
}

func sshAuth(cfg SSHConfig) ([]ssh.AuthMethod, io.Closer, error) {
	var (
		methods []ssh.AuthMethod
		closer  io.Closer
	)

	if cfg.Agent {
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return nil, nil, errors.New("ssh agent requested but SSH_AUTH_SOCK is not set")
		}
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to ssh agent: %w", err)
		}
		closer = conn
		methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
	}

	if cfg.KeyFile != "" {
		buf, err := os.ReadFile(expandHome(cfg.KeyFile))
		if err != nil {
			closeAll(closer)

			return nil, nil, fmt.Errorf("failed to read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(buf)
		if err != nil {
			closeAll(closer)

			return nil, nil, fmt.Errorf("failed to parse key file %s: %w", cfg.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, nil, errors.New("no ssh authentication method configured")
	}

	return methods, closer, nil
}

func hostKeyCallback(cfg SSHConfig) (ssh.HostKeyCallback, error) {
	if cfg.Insecure {
		debug.Log("WARNING: host key verification disabled for %s", cfg.Host)

		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
	}

	files := make([]string, 0, len(cfg.KnownHosts))
	for _, f := range cfg.KnownHosts {
		files = append(files, expandHome(f))
	}
	if len(files) == 0 {
		files = append(files, filepath.Join(appdir.UserHome(), ".ssh", "known_hosts"))
	}

	cb, err := knownhosts.New(files...)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}

	return cb, nil
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(appdir.UserHome(), p[2:])
	}

	return p
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}

// Close ends the SFTP session and the connection.
func (s *SSH) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Fetch downloads path, with "cat" through sudo when privileged.
func (s *SSH) Fetch(ctx context.Context, p string, privileged bool) ([]byte, error) {
	if privileged {
		return s.sudo.Run(ctx, shellJoin("cat", p))
	}

	f, err := s.sftp.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Write replaces path with data. Unprivileged writes upload a staging file
// next to the target and rename it into place; privileged writes upload to
// TempDir and commit with sudo.
func (s *SSH) Write(ctx context.Context, p string, data []byte, privileged bool) error {
	if privileged {
		return s.writePrivileged(ctx, p, data)
	}

	perm := os.FileMode(0o644)
	if fi, err := s.sftp.Stat(p); err == nil {
		perm = fi.Mode().Perm()
	}

	stage := stagingPath(p)
	if err := s.upload(stage, data, perm); err != nil {
		return err
	}
	if err := s.sftp.PosixRename(stage, p); err != nil {
		_ = s.sftp.Remove(stage)

		return fmt.Errorf("failed to rename %s to %s: %w", stage, p, err)
	}

	return nil
}

func (s *SSH) writePrivileged(ctx context.Context, p string, data []byte) error {
	tmp := path.Join(s.TempDir, "confpatch-"+uuid.NewString())
	if err := s.upload(tmp, data, 0o600); err != nil {
		return err
	}
	defer func() {
		_ = s.sftp.Remove(tmp)
	}()

	debug.V(1).Log("committing %s to %s with sudo", tmp, p)
	_, err := s.sudo.Run(ctx, commitScript(tmp, p))

	return err
}

func (s *SSH) upload(p string, data []byte, perm os.FileMode) error {
	f, err := s.sftp.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.sftp.Remove(p)

		return fmt.Errorf("failed to upload %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		_ = s.sftp.Remove(p)

		return fmt.Errorf("failed to upload %s: %w", p, err)
	}
	if err := s.sftp.Chmod(p, perm); err != nil {
		_ = s.sftp.Remove(p)

		return fmt.Errorf("failed to set mode of %s: %w", p, err)
	}

	return nil
}

// Copy runs "cp -p" on the remote host, through sudo when privileged.
func (s *SSH) Copy(ctx context.Context, src, dst string, privileged bool) error {
	r := s.run
	if privileged {
		r = s.sudo
	}
	_, err := r.Run(ctx, shellJoin("cp", "-p", src, dst))

	return err
}

// SessionRunner runs commands in new sessions of an SSH connection.
type SessionRunner struct {
	client *ssh.Client
}

// NewSessionRunner returns a Runner executing commands on the host client is
// connected to.
func NewSessionRunner(client *ssh.Client) *SessionRunner {
	return &SessionRunner{client: client}
}

// Run implements Runner. A canceled context kills the remote command.
func (r *SessionRunner) Run(ctx context.Context, command string) ([]byte, error) {
	session, err := r.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open ssh session: %w", err)
	}
	defer func() {
		_ = session.Close()
	}()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	debug.V(2).Log("running %q", command)

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)

		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, commandError(command, err, stderr.String())
		}
	}

	return stdout.Bytes(), nil
}
