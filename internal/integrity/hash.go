package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/yz4230/forgehost/internal/entity"
)

// ComputeVerificationHash derives the tamper-evident digest binding a
// commit's structural and identity metadata. The line order below is a wire
// format: previously stored hashes only stay comparable while it is
// byte-for-byte stable, so any change here is a breaking one.
//
//	sha
//	tree sha
//	parent sha (one line each, original order)
//	author NAME <EMAIL> RFC3339-UTC
//	committer NAME <EMAIL> RFC3339-UTC
//	signer FINGERPRINT (omitted entirely when unsigned)
//	message (raw)
func ComputeVerificationHash(c *entity.Commit, signerFingerprint string) string {
	h := sha256.New()
	writeLine := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{'\n'})
	}
	writeLine(c.SHA)
	writeLine(c.TreeSHA)
	for _, parent := range c.Parents {
		writeLine(parent)
	}
	writeLine(identLine("author", c.Author))
	writeLine(identLine("committer", c.Committer))
	if signerFingerprint != "" {
		writeLine("signer " + signerFingerprint)
	}
	h.Write([]byte(c.Message))
	return hex.EncodeToString(h.Sum(nil))
}

// identLine renders an identity the way it is hashed: the recorded instant
// normalized to UTC, the original timezone offset discarded.
func identLine(role string, id entity.Ident) string {
	return fmt.Sprintf("%s %s <%s> %s", role, id.Name, id.Email, id.Time.UTC().Format(time.RFC3339))
}
