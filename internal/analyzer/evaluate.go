package analyzer

import (
	"fmt"
	"strings"

	"github.com/blackwell-systems/apkident/internal/catalog"
	"github.com/blackwell-systems/apkident/internal/fingerprint"
	"github.com/blackwell-systems/apkident/internal/snapshots"
)

// CompareSigners reports whether two legacy fingerprints name the same
// signer. An empty side yields SignerUnknown.
func CompareSigners(installed, catalogSig string) SignerStatus {
	if installed == "" || catalogSig == "" {
		return SignerUnknown
	}
	if fingerprint.Equal(installed, catalogSig) {
		return SignerMatch
	}
	return SignerMismatch
}

// MostAppropriateSignature returns the signature to filter catalog
// versions by: the installed one if known, else the app's preferred
// signer, else "".
func MostAppropriateSignature(installedSig, preferredSigner string) string {
	if installedSig != "" {
		return installedSig
	}
	return preferredSigner
}

// Evaluate judges one catalog version against an installed snapshot.
// preferredSigner is the app's preferred signer from the catalog, consulted
// only when the installed signer is unknown.
//
// Tier is:
//   - blocked: incompatible with the device, or signed by another key
//   - review: compatible but the installed signer could not be compared
//   - safe: compatible and signed by the installed key
func Evaluate(installed *snapshots.Snapshot, v *catalog.Version, preferredSigner string, device Device) Evaluation {
	e := Evaluation{
		Package:     v.PackageName,
		VersionCode: v.VersionCode,
		VersionName: v.VersionName,
		Upgrade:     v.VersionCode > installed.VersionCode,
		Reasons:     compatibilityReasons(installed, v, device),
	}
	e.Compatible = len(e.Reasons) == 0

	sig := MostAppropriateSignature(installed.Signer, preferredSigner)
	status := CompareSigners(sig, v.Sig)
	if installed.Signer == "" && status != SignerMatch && fingerprint.Equal(sig, v.Signer) {
		// catalogs publish the preferred signer as the certificate's SHA-256
		status = SignerMatch
	}
	switch {
	case installed.Signer != "":
		e.SignerStatus = status
	case status == SignerMatch:
		e.SignerStatus = SignerPreferred
	default:
		// a preferred signer mismatch says nothing about the installed key
		e.SignerStatus = SignerUnknown
	}

	switch e.SignerStatus {
	case SignerMismatch:
		e.Reasons = append(e.Reasons, "signed by a different key")
	case SignerPreferred:
		e.Reasons = append(e.Reasons, "installed signer unknown, signed by the preferred signer")
	case SignerUnknown:
		switch {
		case installed.Signer != "":
			e.Reasons = append(e.Reasons, "catalog signer unknown")
		case status == SignerMismatch:
			e.Reasons = append(e.Reasons, "installed signer unknown, not signed by the preferred signer")
		default:
			e.Reasons = append(e.Reasons, "installed signer unknown")
		}
	}

	switch {
	case !e.Compatible || e.SignerStatus == SignerMismatch:
		e.Tier = TierBlocked
	case e.SignerStatus == SignerUnknown || e.SignerStatus == SignerPreferred:
		e.Tier = TierReview
	default:
		e.Tier = TierSafe
	}
	return e
}

func compatibilityReasons(installed *snapshots.Snapshot, v *catalog.Version, device Device) []string {
	var reasons []string

	if device.SDK > 0 {
		if v.MinSDK > device.SDK {
			reasons = append(reasons, fmt.Sprintf("requires SDK %d, device has %d", v.MinSDK, device.SDK))
		}
		if v.MaxSDK > 0 && v.MaxSDK < device.SDK {
			reasons = append(reasons, fmt.Sprintf("supports up to SDK %d, device has %d", v.MaxSDK, device.SDK))
		}
	}

	// Without a device ABI list, the installed native code stands in for it.
	abis := device.ABIs
	if len(abis) == 0 {
		abis = installed.NativeCode
	}
	if len(v.NativeCode) > 0 && len(abis) > 0 && !intersects(v.NativeCode, abis) {
		reasons = append(reasons, fmt.Sprintf("native code %s not supported", strings.Join(v.NativeCode, ",")))
	}

	return reasons
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	for _, s := range a {
		if set[s] {
			return true
		}
	}
	return false
}
