package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionPhase(t *testing.T) {
	user := &User{ID: "u1"}

	tests := []struct {
		name    string
		session Session
		want    Phase
	}{
		{"fresh", Session{}, PhaseUninitialized},
		{"restoring", Session{Loading: true, Restoring: true}, PhaseRestoring},
		{"hydrated during restore", Session{Loading: true, Restoring: true, User: user, AccessToken: "tok"}, PhaseRestoring},
		{"busy before restore", Session{Loading: true}, PhaseUninitialized},
		{"authenticated", Session{Initialized: true, User: user, AccessToken: "tok"}, PhaseAuthenticated},
		{"authenticated while busy", Session{Initialized: true, Loading: true, User: user, AccessToken: "tok"}, PhaseAuthenticated},
		{"unauthenticated", Session{Initialized: true}, PhaseUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.Phase())
			assert.Equal(t, tt.session.User != nil, tt.session.Authenticated())
		})
	}
}

func TestSessionClone_Independent(t *testing.T) {
	s := Session{
		User:    &User{ID: "u1", AdditionalPhones: []string{"+37499000001"}},
		Profile: &Profile{UserID: "u1", FarmName: "Ararat"},
	}

	c := s.Clone()
	c.User.ID = "u2"
	c.User.AdditionalPhones[0] = "changed"
	c.Profile.FarmName = "changed"

	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, "+37499000001", s.User.AdditionalPhones[0])
	assert.Equal(t, "Ararat", s.Profile.FarmName)
}

func TestUserMerge(t *testing.T) {
	name := "Ani Petrosyan"
	phones := []string{"+37477000000"}
	u := &User{ID: "u1", FullName: "Ani", Phone: "+37499123456"}

	merged := u.Merge(UserPatch{FullName: &name, AdditionalPhones: &phones})

	assert.Equal(t, "Ani Petrosyan", merged.FullName)
	assert.Equal(t, "+37499123456", merged.Phone)
	assert.Equal(t, []string{"+37477000000"}, merged.AdditionalPhones)
	assert.Equal(t, "Ani", u.FullName, "original must not change")
}

func TestUserPatchIsEmpty(t *testing.T) {
	assert.True(t, UserPatch{}.IsEmpty())
	region := "r1"
	assert.False(t, UserPatch{RegionID: &region}.IsEmpty())
}

func TestProfileApply(t *testing.T) {
	farm := "Green Valley"
	var nilProfile *Profile

	got := nilProfile.Apply(ProfilePatch{FarmName: &farm})
	assert.Equal(t, "Green Valley", got.FarmName)

	orig := &Profile{UserID: "u1", Bio: "grower"}
	got = orig.Apply(ProfilePatch{FarmName: &farm})
	assert.Equal(t, "grower", got.Bio)
	assert.Equal(t, "Green Valley", got.FarmName)
	assert.Empty(t, orig.FarmName)
	assert.True(t, ProfilePatch{}.IsEmpty())
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, OTPChannelEmail, ChannelFor("ani@example.am"))
	assert.Equal(t, OTPChannelSMS, ChannelFor("+37499123456"))
}

func TestOTPPurposeValid(t *testing.T) {
	assert.True(t, OTPPurposeRegistration.Valid())
	assert.True(t, OTPPurposePasswordReset.Valid())
	assert.False(t, OTPPurpose("signup").Valid())
}
