package credentials

import "errors"

const DefaultPrefix = "agromarket"

// Keys is the durable key layout of the credential triplet.
type Keys struct {
	AccessToken  string
	RefreshToken string
	User         string
}

func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{
		AccessToken:  prefix + ":access_token",
		RefreshToken: prefix + ":refresh_token",
		User:         prefix + ":user",
	}
}

func (k Keys) All() []string {
	return []string{k.AccessToken, k.RefreshToken, k.User}
}

var errEmptyKey = errors.New("credential key must not be empty")

func checkKeys[V any](pairs map[string]V) error {
	for k := range pairs {
		if k == "" {
			return errEmptyKey
		}
	}
	return nil
}
