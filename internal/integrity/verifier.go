package integrity

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// SignatureVerifier validates a commit signature against a registered public
// key. Implementations never return an error: an unverifiable signature is
// simply not valid, and ingestion carries on.
type SignatureVerifier interface {
	VerifySSH(ctx context.Context, data []byte, signature, publicKey, signerIdentity string) bool
	VerifyPGP(ctx context.Context, data []byte, signature, publicKey string) bool
}

const sshSigNamespace = "git"

// toolVerifier verifies SSH signatures by shelling out to ssh-keygen and PGP
// signatures in-process via openpgp.
type toolVerifier struct {
	sshTool string
}

func NewVerifier() SignatureVerifier {
	return &toolVerifier{sshTool: "ssh-keygen"}
}

// NewVerifierWithTool exists so tests can point SSH verification at a stub
// binary instead of requiring ssh-keygen on the machine.
func NewVerifierWithTool(sshTool string) SignatureVerifier {
	return &toolVerifier{sshTool: sshTool}
}

// VerifySSH writes the signature and a single-principal allowed-signers file
// into a per-invocation temp dir, then runs `ssh-keygen -Y verify` with the
// payload on stdin. Exit code 0 means valid. The temp dir is removed on
// every exit path.
func (v *toolVerifier) VerifySSH(ctx context.Context, data []byte, signature, publicKey, signerIdentity string) bool {
	log := zerolog.Ctx(ctx)

	dir, err := os.MkdirTemp("", "forgehost-sshsig-*")
	if err != nil {
		log.Error().Err(err).Msg("create signature temp dir")
		return false
	}
	defer os.RemoveAll(dir)

	sigPath := filepath.Join(dir, "commit.sig")
	if err := os.WriteFile(sigPath, []byte(signature), 0o600); err != nil {
		log.Error().Err(err).Msg("write signature file")
		return false
	}
	signersPath := filepath.Join(dir, "allowed_signers")
	signersLine := fmt.Sprintf("%s %s\n", signerIdentity, strings.TrimSpace(publicKey))
	if err := os.WriteFile(signersPath, []byte(signersLine), 0o600); err != nil {
		log.Error().Err(err).Msg("write allowed signers file")
		return false
	}

	cmd := exec.CommandContext(ctx, v.sshTool, "-Y", "verify",
		"-f", signersPath,
		"-I", signerIdentity,
		"-n", sshSigNamespace,
		"-s", sigPath)
	cmd.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	log.Debug().Strs("command", cmd.Args).Msg("executing signature verification")
	if err := cmd.Run(); err != nil {
		log.Debug().Err(err).Str("stderr", stderr.String()).Msg("ssh signature rejected")
		return false
	}
	return true
}

// VerifyPGP checks an armored detached signature against an armored public
// key. Any parse or validity failure yields false.
func (v *toolVerifier) VerifyPGP(ctx context.Context, data []byte, signature, publicKey string) bool {
	log := zerolog.Ctx(ctx)
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(publicKey))
	if err != nil {
		log.Debug().Err(err).Msg("parse pgp public key")
		return false
	}
	signer, err := openpgp.CheckArmoredDetachedSignature(
		keyring, bytes.NewReader(data), strings.NewReader(signature), nil)
	if err != nil || signer == nil {
		log.Debug().Err(err).Msg("pgp signature rejected")
		return false
	}
	return true
}

// SSHFingerprint returns the SHA256 fingerprint of an authorized-keys style
// public key line.
func SSHFingerprint(publicKey string) (string, error) {
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return "", fmt.Errorf("parse ssh public key: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}
