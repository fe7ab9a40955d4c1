package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pscheid92/agromarket/internal/app"
	"github.com/pscheid92/agromarket/internal/domain"
)

type sessionView struct {
	Phase     string          `json:"phase"`
	User      *domain.User    `json:"user,omitempty"`
	Profile   *domain.Profile `json:"profile,omitempty"`
	ExpiresAt time.Time       `json:"token_expires_at,omitzero"`
}

func viewOf(s domain.Session) sessionView {
	v := sessionView{Phase: s.Phase().String(), User: s.User, Profile: s.Profile}
	if exp, ok := app.TokenExpiry(s.AccessToken); ok {
		v.ExpiresAt = exp.UTC()
	}
	return v
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (e *env) printMessage(msg string) error {
	if e.asJSON {
		return e.printJSON(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(e.out, msg)
	return err
}

func (e *env) printSession(s domain.Session) error {
	v := viewOf(s)
	if e.asJSON {
		return e.printJSON(v)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Status:   %s\n", v.Phase)
	if u := v.User; u != nil {
		fmt.Fprintf(&b, "User:     %s (%s)\n", firstNonEmpty(u.FullName, u.Username, u.ID), u.AccountType)
		if u.Phone != "" {
			fmt.Fprintf(&b, "Phone:    %s\n", u.Phone)
		}
		if u.Email != "" {
			fmt.Fprintf(&b, "Email:    %s\n", u.Email)
		}
	}
	if !v.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "Expires:  %s\n", v.ExpiresAt.Format(time.RFC3339))
	}
	if p := v.Profile; p != nil {
		writeProfile(&b, p)
	}
	_, err := fmt.Fprint(e.out, b.String())
	return err
}

func (e *env) printProfile(p *domain.Profile) error {
	if e.asJSON {
		return e.printJSON(p)
	}
	if p == nil {
		return e.printMessage("No profile loaded.")
	}
	var b strings.Builder
	writeProfile(&b, p)
	_, err := fmt.Fprint(e.out, b.String())
	return err
}

func writeProfile(b *strings.Builder, p *domain.Profile) {
	fields := []struct{ label, value string }{
		{"Name", p.FullName},
		{"Farm", p.FarmName},
		{"Bio", p.Bio},
		{"Region", p.RegionID},
		{"Village", p.VillageID},
		{"Address", p.Address},
		{"Avatar", p.AvatarURL},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(b, "%-9s %s\n", f.label+":", f.value)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
