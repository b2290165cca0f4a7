package remote

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"dbdock/pkg/config"
)

// SFTP replicates artifacts to a host reachable over SSH, such as a
// NAS or a plain storage box
type SFTP struct {
	cfg        *config.SFTPConfig
	sshClient  *ssh.Client
	sftpClient *sftp.Client
}

// NewSFTP connects to the remote host with public-key auth
func NewSFTP(cfg *config.SFTPConfig) (*SFTP, error) {
	keyFile := cfg.KeyFile
	if strings.HasPrefix(keyFile, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		keyFile = filepath.Join(home, keyFile[2:])
	}

	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key file %s: %w", keyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: known_hosts verification
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	sshClient, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}

	return &SFTP{cfg: cfg, sshClient: sshClient, sftpClient: sftpClient}, nil
}

// Upload copies a local artifact to the remote path, creating any
// missing directories
func (s *SFTP) Upload(localPath, remoteName string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer localFile.Close()

	remotePath := s.remotePath(remoteName)
	if err := s.sftpClient.MkdirAll(path.Dir(remotePath)); err != nil {
		return fmt.Errorf("failed to create remote directory %s: %w", path.Dir(remotePath), err)
	}

	remoteFile, err := s.sftpClient.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	defer remoteFile.Close()

	if _, err := io.Copy(remoteFile, localFile); err != nil {
		return fmt.Errorf("failed to copy to %s: %w", remotePath, err)
	}
	return nil
}

// List walks the remote tree under the given prefix
func (s *SFTP) List(prefix string) ([]Artifact, error) {
	root := s.remotePath(prefix)
	if _, err := s.sftpClient.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	var artifacts []Artifact
	walker := s.sftpClient.Walk(root)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
		info := walker.Stat()
		if info.IsDir() {
			continue
		}
		name := strings.TrimPrefix(walker.Path(), s.remotePath("")+"/")
		artifacts = append(artifacts, Artifact{
			Name:    name,
			Size:    info.Size(),
			ModTime: info.ModTime().UTC(),
		})
	}
	return artifacts, nil
}

// Close closes the SFTP and SSH connections
func (s *SFTP) Close() error {
	var errs []error
	if s.sftpClient != nil {
		if err := s.sftpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close SFTP client: %w", err))
		}
	}
	if s.sshClient != nil {
		if err := s.sshClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close SSH client: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing connections: %v", errs)
	}
	return nil
}

func (s *SFTP) remotePath(remoteName string) string {
	return path.Join(s.cfg.Path, remoteName)
}
