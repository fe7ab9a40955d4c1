package domain

import (
	"slices"
	"time"
)

type AccountType string

const (
	AccountTypeFarmer AccountType = "farmer"
	AccountTypeBuyer  AccountType = "buyer"
)

// User is the identity record returned by the backend and cached as the third
// element of the credential triplet. Empty strings mean absent.
type User struct {
	ID               string      `json:"id"`
	Email            string      `json:"email,omitempty"`
	Phone            string      `json:"phone,omitempty"`
	Username         string      `json:"username,omitempty"`
	FullName         string      `json:"full_name,omitempty"`
	AccountType      AccountType `json:"account_type,omitempty"`
	AdditionalPhones []string    `json:"additional_phones,omitempty"`
	RegionID         string      `json:"region_id,omitempty"`
	VillageID        string      `json:"village_id,omitempty"`
}

// Valid reports whether u identifies somebody.
func (u *User) Valid() bool {
	return u != nil && u.ID != ""
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.AdditionalPhones = slices.Clone(u.AdditionalPhones)
	return &c
}

// UserPatch is a partial update of User. Nil fields are left untouched.
type UserPatch struct {
	Email            *string
	Phone            *string
	Username         *string
	FullName         *string
	AccountType      *AccountType
	AdditionalPhones *[]string
	RegionID         *string
	VillageID        *string
}

func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.Phone == nil && p.Username == nil && p.FullName == nil &&
		p.AccountType == nil && p.AdditionalPhones == nil && p.RegionID == nil && p.VillageID == nil
}

// Merge returns a copy of u with p applied.
func (u *User) Merge(p UserPatch) *User {
	c := u.Clone()
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Username != nil {
		c.Username = *p.Username
	}
	if p.FullName != nil {
		c.FullName = *p.FullName
	}
	if p.AccountType != nil {
		c.AccountType = *p.AccountType
	}
	if p.AdditionalPhones != nil {
		c.AdditionalPhones = slices.Clone(*p.AdditionalPhones)
	}
	if p.RegionID != nil {
		c.RegionID = *p.RegionID
	}
	if p.VillageID != nil {
		c.VillageID = *p.VillageID
	}
	return c
}

// Profile is the extended identity record. It is fetched independently of
// User and may lag behind it.
type Profile struct {
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	RegionID  string    `json:"region_id,omitempty"`
	VillageID string    `json:"village_id,omitempty"`
	Address   string    `json:"address,omitempty"`
	FarmName  string    `json:"farm_name,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// ProfilePatch is the body of a profile update. Nil fields are not sent.
type ProfilePatch struct {
	FullName  *string `json:"full_name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	RegionID  *string `json:"region_id,omitempty"`
	VillageID *string `json:"village_id,omitempty"`
	Address   *string `json:"address,omitempty"`
	FarmName  *string `json:"farm_name,omitempty"`
}

func (p ProfilePatch) IsEmpty() bool {
	return p.FullName == nil && p.AvatarURL == nil && p.Bio == nil && p.RegionID == nil &&
		p.VillageID == nil && p.Address == nil && p.FarmName == nil
}

// Apply returns a copy of prof with p applied.
func (prof *Profile) Apply(p ProfilePatch) *Profile {
	c := prof.Clone()
	if c == nil {
		c = &Profile{}
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.FullName, p.FullName)
	set(&c.AvatarURL, p.AvatarURL)
	set(&c.Bio, p.Bio)
	set(&c.RegionID, p.RegionID)
	set(&c.VillageID, p.VillageID)
	set(&c.Address, p.Address)
	set(&c.FarmName, p.FarmName)
	return c
}
