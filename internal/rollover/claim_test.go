package rollover

import "testing"

func TestSessionClaimFirstWriterWins(t *testing.T) {
	claim := NewSessionClaim()

	if !claim.Claim(ClaimNotification) {
		t.Fatal("first claim should succeed")
	}
	if claim.Claim(ClaimAppOpen) {
		t.Fatal("second source must not steal the claim")
	}
	if !claim.ClaimedBy(ClaimNotification) {
		t.Fatal("claim should still belong to the notification path")
	}
}

func TestSessionClaimReclaimBySameSource(t *testing.T) {
	claim := NewSessionClaim()
	claim.Claim(ClaimAppOpen)

	if !claim.Claim(ClaimAppOpen) {
		t.Fatal("holder should be able to re-claim")
	}
}

func TestSessionClaimRelease(t *testing.T) {
	claim := NewSessionClaim()
	claim.Claim(ClaimNotification)
	claim.Release()

	if claim.ClaimedBy(ClaimNotification) {
		t.Fatal("released claim should have no holder")
	}
	if !claim.Claim(ClaimAppOpen) {
		t.Fatal("claim should be available again after release")
	}
}

func TestSessionClaimRejectsNone(t *testing.T) {
	claim := NewSessionClaim()
	if claim.Claim(ClaimNone) {
		t.Fatal("ClaimNone is not a valid holder")
	}
	if !claim.Claim(ClaimAppOpen) {
		t.Fatal("claim should remain free after a ClaimNone attempt")
	}
}
