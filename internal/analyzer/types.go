package analyzer

import "github.com/blackwell-systems/apkident/internal/snapshots"

// SignerStatus compares an installed signer with a catalog signer.
type SignerStatus string

const (
	// SignerUnknown means one side has no fingerprint. It is not a
	// mismatch.
	SignerUnknown  SignerStatus = "unknown"
	SignerMatch    SignerStatus = "match"
	SignerMismatch SignerStatus = "mismatch"

	// SignerPreferred means the installed signer is unknown and the
	// catalog version is signed by the app's preferred signer. It is not
	// a confirmed match.
	SignerPreferred SignerStatus = "preferred"
)

// Tiers rank how safe it is to install a catalog version over the
// installed one.
const (
	TierSafe    = "safe"
	TierReview  = "review"
	TierBlocked = "blocked"
)

// Device describes the target the installed snapshots came from. Zero
// values disable the corresponding checks.
type Device struct {
	SDK  int
	ABIs []string
}

// Evaluation is the verdict on one catalog version.
type Evaluation struct {
	Package      string
	VersionCode  int64
	VersionName  string
	SignerStatus SignerStatus
	Compatible   bool
	Upgrade      bool     // newer than the installed version
	Reasons      []string // why the version is not safe
	Tier         string
}

// Report holds the evaluations of every catalog version of one installed
// package.
type Report struct {
	Package     string
	Installed   *snapshots.Snapshot
	Evaluations []Evaluation
	Suggested   *Evaluation // nil when the catalog has no versions
}

// UpdateAvailable reports whether the suggested version is a safe upgrade.
func (r *Report) UpdateAvailable() bool {
	return r.Suggested != nil && r.Suggested.Upgrade && r.Suggested.Tier == TierSafe
}
