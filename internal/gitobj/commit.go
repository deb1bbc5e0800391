package gitobj

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yz4230/forgehost/internal/entity"
)

// RawCommit is a parsed git commit object as stored in the object database.
type RawCommit struct {
	SHA       string
	TreeSHA   string
	Parents   []string
	Author    entity.Ident
	Committer entity.Ident
	Message   string
	// Signature is the embedded gpgsig block (PGP or SSH armor), empty for
	// unsigned commits.
	Signature string
	raw       []byte
}

// SignatureKind classifies the embedded signature by its armor header.
func (c *RawCommit) SignatureKind() entity.SigningKeyKind {
	if strings.Contains(c.Signature, "SSH SIGNATURE") {
		return entity.SigningKeySSH
	}
	return entity.SigningKeyPGP
}

// SignedPayload returns the bytes the signature covers: the raw object with
// the gpgsig header stripped, per git's signing scheme.
func (c *RawCommit) SignedPayload() []byte {
	if c.Signature == "" {
		return c.raw
	}
	var out bytes.Buffer
	inSig := false
	for line := range strings.Lines(string(c.raw)) {
		if strings.HasPrefix(line, "gpgsig ") {
			inSig = true
			continue
		}
		if inSig && strings.HasPrefix(line, " ") {
			continue
		}
		inSig = false
		out.WriteString(line)
	}
	return out.Bytes()
}

// ReadCommit loads and parses one commit object from the bare repository at
// repoDir. The object store is reached through the git CLI.
func ReadCommit(ctx context.Context, repoDir, sha string) (*RawCommit, error) {
	log := zerolog.Ctx(ctx)
	cmd := exec.CommandContext(ctx, "git", "-C", repoDir, "cat-file", "commit", sha)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Debug().Strs("command", cmd.Args).Msg("reading commit object")
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		log.Debug().Err(err).Str("stderr", msg).Msg("cat-file failed")
		// Only an exit status complaining about the object itself means the
		// object is absent: "Not a valid object name" for an unresolvable
		// name, "bad file" for a sha missing from the store. Anything else
		// (missing repository, broken git, killed process) is an
		// infrastructure failure.
		var exitErr *exec.ExitError
		lower := strings.ToLower(msg)
		if errors.As(err, &exitErr) &&
			(strings.Contains(lower, "not a valid object name") || strings.Contains(lower, "bad file")) {
			return nil, fmt.Errorf("read commit %s: %w", sha, entity.ErrNotFound)
		}
		return nil, fmt.Errorf("read commit %s: %s: %w", sha, msg, entity.ErrInternal)
	}
	return ParseCommit(sha, stdout.Bytes())
}

// ParseCommit parses the raw bytes of a commit object. Header continuation
// lines (leading space) belong to the preceding header, which is how the
// multi-line gpgsig block is encoded.
func ParseCommit(sha string, raw []byte) (*RawCommit, error) {
	c := &RawCommit{SHA: sha, raw: raw}

	header, message, found := strings.Cut(string(raw), "\n\n")
	if !found {
		return nil, fmt.Errorf("commit %s: malformed object", sha)
	}
	c.Message = message

	lines := strings.Split(header, "\n")
	for i := 0; i < len(lines); i++ {
		key, value, _ := strings.Cut(lines[i], " ")
		for i+1 < len(lines) && strings.HasPrefix(lines[i+1], " ") {
			value += "\n" + strings.TrimPrefix(lines[i+1], " ")
			i++
		}
		switch key {
		case "tree":
			c.TreeSHA = value
		case "parent":
			c.Parents = append(c.Parents, value)
		case "author":
			ident, err := parseIdent(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s: %w", sha, err)
			}
			c.Author = ident
		case "committer":
			ident, err := parseIdent(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s: %w", sha, err)
			}
			c.Committer = ident
		case "gpgsig":
			c.Signature = value
		}
	}
	if c.TreeSHA == "" {
		return nil, fmt.Errorf("commit %s: missing tree", sha)
	}
	return c, nil
}

// parseIdent parses "Name <email> epoch offset". The epoch already names a
// UTC instant, so the offset is only validated, then discarded; every caller
// sees one canonical UTC representation.
func parseIdent(s string) (entity.Ident, error) {
	lt := strings.Index(s, " <")
	gt := strings.Index(s, "> ")
	if lt < 0 || gt < lt {
		return entity.Ident{}, fmt.Errorf("malformed ident %q", s)
	}
	ident := entity.Ident{
		Name:  s[:lt],
		Email: s[lt+2 : gt],
	}
	rest := strings.Fields(s[gt+2:])
	if len(rest) < 1 {
		return entity.Ident{}, fmt.Errorf("malformed ident %q", s)
	}
	epoch, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return entity.Ident{}, fmt.Errorf("malformed ident time %q", s)
	}
	ident.Time = time.Unix(epoch, 0).UTC()
	return ident, nil
}
