package gitobj

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yz4230/forgehost/internal/entity"
)

const unsignedObject = `tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904
parent 1111111111111111111111111111111111111111
parent 2222222222222222222222222222222222222222
author Alice <alice@example.com> 1685620800 +0900
committer Bob <bob@example.com> 1685622600 -0500

merge feature branch

second paragraph
`

const signedObject = `tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904
parent 1111111111111111111111111111111111111111
author Alice <alice@example.com> 1685620800 +0000
committer Alice <alice@example.com> 1685620800 +0000
gpgsig -----BEGIN SSH SIGNATURE-----
 U1NIU0lHAAAAAQ==
 -----END SSH SIGNATURE-----

signed change
`

func TestParseCommit(t *testing.T) {
	c, err := ParseCommit("deadbeef", []byte(unsignedObject))
	if err != nil {
		t.Fatalf("ParseCommit() error: %v", err)
	}
	if c.TreeSHA != "4b825dc642cb6eb9a060e54bf8d69288fbee4904" {
		t.Errorf("tree = %q", c.TreeSHA)
	}
	if len(c.Parents) != 2 || c.Parents[0] != strings.Repeat("1", 40) || c.Parents[1] != strings.Repeat("2", 40) {
		t.Errorf("parents = %v", c.Parents)
	}
	if c.Author.Name != "Alice" || c.Author.Email != "alice@example.com" {
		t.Errorf("author = %+v", c.Author)
	}
	// 1685620800 is 2023-06-01T12:00:00Z regardless of the recorded offset.
	if want := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC); !c.Author.Time.Equal(want) {
		t.Errorf("author time = %v, want %v", c.Author.Time, want)
	}
	if loc := c.Author.Time.Location(); loc != time.UTC {
		t.Errorf("author time location = %v, want UTC", loc)
	}
	if c.Committer.Name != "Bob" || c.Committer.Email != "bob@example.com" {
		t.Errorf("committer = %+v", c.Committer)
	}
	if want := "merge feature branch\n\nsecond paragraph\n"; c.Message != want {
		t.Errorf("message = %q, want %q", c.Message, want)
	}
	if c.Signature != "" {
		t.Errorf("expected no signature, got %q", c.Signature)
	}
}

func TestParseCommitSigned(t *testing.T) {
	c, err := ParseCommit("cafebabe", []byte(signedObject))
	if err != nil {
		t.Fatalf("ParseCommit() error: %v", err)
	}
	wantSig := "-----BEGIN SSH SIGNATURE-----\nU1NIU0lHAAAAAQ==\n-----END SSH SIGNATURE-----"
	if c.Signature != wantSig {
		t.Errorf("signature = %q, want %q", c.Signature, wantSig)
	}
	if c.SignatureKind() != entity.SigningKeySSH {
		t.Errorf("kind = %v, want ssh", c.SignatureKind())
	}
	if c.Message != "signed change\n" {
		t.Errorf("message = %q", c.Message)
	}
}

func TestSignatureKindPGP(t *testing.T) {
	c := &RawCommit{Signature: "-----BEGIN PGP SIGNATURE-----\nabc\n-----END PGP SIGNATURE-----"}
	if c.SignatureKind() != entity.SigningKeyPGP {
		t.Errorf("kind = %v, want pgp", c.SignatureKind())
	}
}

func TestSignedPayloadStripsSignature(t *testing.T) {
	c, err := ParseCommit("cafebabe", []byte(signedObject))
	if err != nil {
		t.Fatal(err)
	}
	payload := string(c.SignedPayload())
	if strings.Contains(payload, "gpgsig") || strings.Contains(payload, "SSH SIGNATURE") {
		t.Errorf("payload still contains signature: %q", payload)
	}
	want := `tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904
parent 1111111111111111111111111111111111111111
author Alice <alice@example.com> 1685620800 +0000
committer Alice <alice@example.com> 1685620800 +0000

signed change
`
	if payload != want {
		t.Errorf("payload = %q, want %q", payload, want)
	}
}

func TestSignedPayloadUnsigned(t *testing.T) {
	c, err := ParseCommit("deadbeef", []byte(unsignedObject))
	if err != nil {
		t.Fatal(err)
	}
	if string(c.SignedPayload()) != unsignedObject {
		t.Error("unsigned payload must be the raw object")
	}
}

func initGitRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	env := append(os.Environ(),
		"GIT_AUTHOR_NAME=Alice", "GIT_AUTHOR_EMAIL=alice@example.com",
		"GIT_COMMITTER_NAME=Alice", "GIT_COMMITTER_EMAIL=alice@example.com",
	)
	for _, args := range [][]string{
		{"init", "-b", "main", dir},
		{"-C", dir, "commit", "--allow-empty", "-m", "initial"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Env = env
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	out, err := exec.Command("git", "-C", dir, "rev-parse", "HEAD").Output()
	if err != nil {
		t.Fatal(err)
	}
	return dir, strings.TrimSpace(string(out))
}

func TestReadCommit(t *testing.T) {
	ctx := context.Background()
	dir, sha := initGitRepo(t)

	c, err := ReadCommit(ctx, dir, sha)
	if err != nil {
		t.Fatalf("ReadCommit() error: %v", err)
	}
	if c.SHA != sha || c.Message != "initial\n" {
		t.Errorf("commit = %+v", c)
	}
}

func TestReadCommitMissingObject(t *testing.T) {
	ctx := context.Background()
	dir, _ := initGitRepo(t)

	_, err := ReadCommit(ctx, dir, strings.Repeat("0", 40))
	if !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("missing object: got %v, want not found", err)
	}
}

func TestReadCommitBrokenRepository(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "does-not-exist")

	_, err := ReadCommit(ctx, dir, strings.Repeat("0", 40))
	if err == nil {
		t.Fatal("expected error")
	}
	// A repository problem must not masquerade as a missing commit.
	if errors.Is(err, entity.ErrNotFound) {
		t.Errorf("got not found, want internal: %v", err)
	}
	if !errors.Is(err, entity.ErrInternal) {
		t.Errorf("got %v, want internal", err)
	}
}

func TestParseCommitMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no header separator", "tree abc\nauthor A <a@x> 1 +0000"},
		{"missing tree", "author A <a@x> 1 +0000\ncommitter A <a@x> 1 +0000\n\nmsg\n"},
		{"bad ident", "tree abc\nauthor broken\ncommitter A <a@x> 1 +0000\n\nmsg\n"},
		{"bad epoch", "tree abc\nauthor A <a@x> nan +0000\ncommitter A <a@x> 1 +0000\n\nmsg\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCommit("x", []byte(tt.raw)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}
