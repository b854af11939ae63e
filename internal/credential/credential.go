package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrNoIdentity reports that the environment has no usable identity.
var ErrNoIdentity = errors.New("no identity configured")

// Credential is a short-lived bearer token obtained for one request.
// The token never appears in String or LogFields output.
type Credential struct {
	Token      string
	TokenType  string
	Expiry     time.Time
	AcquiredAt time.Time
	Source     string
}

// AuthorizationHeader returns the value for the Authorization header.
func (c *Credential) AuthorizationHeader() string {
	typ := strings.TrimSpace(c.TokenType)
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + c.Token
}

func (c *Credential) String() string {
	return fmt.Sprintf("credential{source=%s type=%s expiry=%s}", c.Source, c.TokenType, c.Expiry.Format(time.RFC3339))
}

// LogFields describes the credential without secrets.
func (c *Credential) LogFields() log.Fields {
	f := log.Fields{"credential_source": c.Source}
	if !c.Expiry.IsZero() {
		f["credential_expires_in_s"] = int64(time.Until(c.Expiry).Seconds())
	}
	return f
}

// Provider yields a credential for each upstream call.
type Provider interface {
	Acquire(ctx context.Context) (*Credential, error)
	Name() string
}

func fromToken(source string, tok *oauth2.Token, now time.Time) *Credential {
	return &Credential{
		Token:      tok.AccessToken,
		TokenType:  tok.Type(),
		Expiry:     tok.Expiry,
		AcquiredAt: now,
		Source:     source,
	}
}
