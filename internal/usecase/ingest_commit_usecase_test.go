package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yz4230/forgehost/internal/entity"
	"github.com/yz4230/forgehost/internal/gitobj"
)

// recordingVerifier accepts or rejects everything and remembers which
// algorithm was asked.
type recordingVerifier struct {
	ok     bool
	sshHit bool
	pgpHit bool
}

func (v *recordingVerifier) VerifySSH(ctx context.Context, data []byte, signature, publicKey, signerIdentity string) bool {
	v.sshHit = true
	return v.ok
}

func (v *recordingVerifier) VerifyPGP(ctx context.Context, data []byte, signature, publicKey string) bool {
	v.pgpHit = true
	return v.ok
}

func (e *testEnv) ingestUsecase(v *recordingVerifier) IngestCommitUsecase {
	return &ingestCommitUsecaseImpl{
		gitStorage:           e.gitStorage,
		repositoryRepository: e.r.Repos,
		userRepository:       e.r.Users,
		verifier:             v,
		txManager:            e.txm,
	}
}

func TestIngestCommitUnsigned(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedRepo(t, "demo")
	sha := env.gitCommit(t, "demo", "initial commit")

	u := env.ingestUsecase(&recordingVerifier{})
	commit, err := u.Execute(ctx, "demo", sha)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if commit.SHA != sha {
		t.Errorf("sha = %s, want %s", commit.SHA, sha)
	}
	if commit.SignatureStatus != entity.SignatureUnsigned {
		t.Errorf("signature status = %s, want unsigned", commit.SignatureStatus)
	}
	if len(commit.VerificationHash) != 64 {
		t.Errorf("hash = %q, want 64 hex chars", commit.VerificationHash)
	}
	// The author email is not registered; the commit stays unattributed.
	if !commit.AuthorUserID.IsZero() {
		t.Errorf("author user = %s, want unattributed", commit.AuthorUserID)
	}

	// A second ingestion of the same commit is idempotent.
	again, err := u.Execute(ctx, "demo", sha)
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if again.ID != commit.ID || again.VerificationHash != commit.VerificationHash {
		t.Errorf("re-ingestion changed the row: %+v vs %+v", again, commit)
	}
}

func TestIngestCommitAttributesKnownAuthor(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	repo := env.seedRepo(t, "demo")
	alice, err := env.r.Users.Create(ctx, &entity.User{Name: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	sha := env.gitCommit(t, "demo", "change by alice")

	commit, err := env.ingestUsecase(&recordingVerifier{}).Execute(ctx, "demo", sha)
	if err != nil {
		t.Fatal(err)
	}
	if commit.AuthorUserID != alice.ID {
		t.Errorf("author user = %s, want %s", commit.AuthorUserID, alice.ID)
	}
	if commit.RepoID != repo.ID {
		t.Errorf("repo = %s, want %s", commit.RepoID, repo.ID)
	}
}

func TestIngestCommitHashExcludesKeyWhenUnsigned(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seedRepo(t, "demo")
	sha := env.gitCommit(t, "demo", "unsigned work")

	u := env.ingestUsecase(&recordingVerifier{})
	before, err := u.Execute(ctx, "demo", sha)
	if err != nil {
		t.Fatal(err)
	}

	// Registering a signing key afterwards must not perturb the hash of an
	// unsigned commit on re-ingestion.
	alice, err := env.r.Users.Create(ctx, &entity.User{Name: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.r.Users.AddSigningKey(ctx, &entity.SigningKey{
		UserID: alice.ID, Kind: entity.SigningKeySSH,
		Fingerprint: "SHA256:fp", PublicKey: "ssh-ed25519 AAAA",
	}); err != nil {
		t.Fatal(err)
	}

	after, err := u.Execute(ctx, "demo", sha)
	if err != nil {
		t.Fatal(err)
	}
	if after.VerificationHash != before.VerificationHash {
		t.Error("unsigned commit hash must not depend on registered keys")
	}
}

func TestIngestCommitNotFound(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	u := env.ingestUsecase(&recordingVerifier{})

	if _, err := u.Execute(ctx, "missing", "abc"); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("unknown repository: got %v", err)
	}

	env.seedRepo(t, "demo")
	env.gitCommit(t, "demo", "initial commit")
	if _, err := u.Execute(ctx, "demo", strings.Repeat("0", 40)); !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("unknown commit: got %v", err)
	}
}

func TestVerifySignatureDispatch(t *testing.T) {
	key := &entity.SigningKey{Kind: entity.SigningKeySSH, PublicKey: "ssh-ed25519 AAAA", Fingerprint: "SHA256:fp"}
	sshSig := "-----BEGIN SSH SIGNATURE-----\nAAAA\n-----END SSH SIGNATURE-----"
	pgpSig := "-----BEGIN PGP SIGNATURE-----\nAAAA\n-----END PGP SIGNATURE-----"

	tests := []struct {
		name      string
		signature string
		key       *entity.SigningKey
		ok        bool
		want      entity.SignatureStatus
		wantSSH   bool
		wantPGP   bool
	}{
		{"unsigned", "", key, true, entity.SignatureUnsigned, false, false},
		{"signed without key", sshSig, nil, true, entity.SignatureInvalid, false, false},
		{"valid ssh", sshSig, key, true, entity.SignatureVerified, true, false},
		{"invalid ssh", sshSig, key, false, entity.SignatureInvalid, true, false},
		{"valid pgp", pgpSig, key, true, entity.SignatureVerified, false, true},
		{"invalid pgp", pgpSig, key, false, entity.SignatureInvalid, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &recordingVerifier{ok: tt.ok}
			u := &ingestCommitUsecaseImpl{verifier: v}
			raw, err := gitobj.ParseCommit("abc", rawObject(tt.signature))
			if err != nil {
				t.Fatal(err)
			}
			got := u.verifySignature(context.Background(), raw, tt.key)
			if got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
			if v.sshHit != tt.wantSSH || v.pgpHit != tt.wantPGP {
				t.Errorf("dispatch ssh=%v pgp=%v, want ssh=%v pgp=%v", v.sshHit, v.pgpHit, tt.wantSSH, tt.wantPGP)
			}
		})
	}
}

func TestSignerFingerprintDerivedFromKey(t *testing.T) {
	const (
		goldenKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIAABAgMEBQYHCAkKCwwNDg8QERITFBUWFxgZGhscHR4f"
		goldenFP  = "SHA256:ZkAslGjFiUHdGf/WUL8rQvkib4PTvQatUV0OUQSncCA"
	)
	tests := []struct {
		name string
		key  *entity.SigningKey
		want string
	}{
		{
			// The stored column is ignored when the key material parses.
			"ssh derives from public key",
			&entity.SigningKey{Kind: entity.SigningKeySSH, PublicKey: goldenKey, Fingerprint: "SHA256:stale"},
			goldenFP,
		},
		{
			"unparseable ssh falls back to stored",
			&entity.SigningKey{Kind: entity.SigningKeySSH, PublicKey: "not a key", Fingerprint: "SHA256:stored"},
			"SHA256:stored",
		},
		{
			"pgp uses stored",
			&entity.SigningKey{Kind: entity.SigningKeyPGP, PublicKey: "irrelevant", Fingerprint: "ABCD1234"},
			"ABCD1234",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := signerFingerprint(tt.key); got != tt.want {
				t.Errorf("signerFingerprint() = %q, want %q", got, tt.want)
			}
		})
	}
}

func rawObject(signature string) []byte {
	var b strings.Builder
	b.WriteString("tree 4b825dc642cb6eb9a060e54bf8d69288fbee4904\n")
	b.WriteString("author A <a@x.com> 1700000000 +0000\n")
	b.WriteString("committer A <a@x.com> 1700000000 +0000\n")
	if signature != "" {
		b.WriteString("gpgsig " + strings.ReplaceAll(signature, "\n", "\n ") + "\n")
	}
	b.WriteString("\nmsg\n")
	return []byte(b.String())
}

func TestTruncateMessage(t *testing.T) {
	short := "short message"
	if got := truncateMessage(short); got != short {
		t.Errorf("short message changed: %q", got)
	}
	long := strings.Repeat("x", maxMessageLen+100)
	if got := truncateMessage(long); len(got) != maxMessageLen {
		t.Errorf("len = %d, want %d", len(got), maxMessageLen)
	}
}
