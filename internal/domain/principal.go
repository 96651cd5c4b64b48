package domain

import (
	"encoding/json"
	"regexp"
	"strings"
)

// PrincipalType is the discriminant of the closed Principal family.
type PrincipalType string

// Principal variants.
const (
	PrincipalIAMRole         PrincipalType = "IamRole"
	PrincipalIAMUser         PrincipalType = "IamUser"
	PrincipalIAMGroup        PrincipalType = "IamGroup"
	PrincipalExternalAccount PrincipalType = "ExternalAccount"
)

var (
	accountIDPattern = regexp.MustCompile(`^\d{12}$`)
	iamARNPattern    = regexp.MustCompile(`^arn:aws[a-z-]*:iam::(\d{12}):(role|user|group)/(.+)$`)
)

// Principal is an identity that can be granted permissions. Its id is the
// backend identifier itself: an IAM ARN or a 12-digit account number.
type Principal struct {
	Type       PrincipalType
	Identifier string
}

// NewIAMRole validates arn as an IAM role ARN.
func NewIAMRole(arn string) (Principal, error) {
	return newIAMPrincipal(PrincipalIAMRole, "role", arn)
}

// NewIAMUser validates arn as an IAM user ARN.
func NewIAMUser(arn string) (Principal, error) {
	return newIAMPrincipal(PrincipalIAMUser, "user", arn)
}

// NewIAMGroup validates arn as an IAM group ARN.
func NewIAMGroup(arn string) (Principal, error) {
	return newIAMPrincipal(PrincipalIAMGroup, "group", arn)
}

// NewExternalAccount validates accountID as a 12-digit account number.
func NewExternalAccount(accountID string) (Principal, error) {
	if err := ValidateAccountID(accountID); err != nil {
		return Principal{}, err
	}
	return Principal{Type: PrincipalExternalAccount, Identifier: accountID}, nil
}

// NewPrincipal dispatches to the constructor for t.
func NewPrincipal(t PrincipalType, identifier string) (Principal, error) {
	switch t {
	case PrincipalIAMRole:
		return NewIAMRole(identifier)
	case PrincipalIAMUser:
		return NewIAMUser(identifier)
	case PrincipalIAMGroup:
		return NewIAMGroup(identifier)
	case PrincipalExternalAccount:
		return NewExternalAccount(identifier)
	default:
		return Principal{}, ErrUnknownVariant("principal", string(t))
	}
}

func newIAMPrincipal(t PrincipalType, kind, arn string) (Principal, error) {
	m := iamARNPattern.FindStringSubmatch(arn)
	if m == nil {
		return Principal{}, ErrValidation("invalid IAM ARN %q", arn)
	}
	if m[2] != kind {
		return Principal{}, ErrValidation("ARN %q is not an IAM %s", arn, kind)
	}
	return Principal{Type: t, Identifier: arn}, nil
}

// ValidateAccountID checks that id is a 12-digit account number.
func ValidateAccountID(id string) error {
	if !accountIDPattern.MatchString(id) {
		return ErrValidation("invalid account id %q", id)
	}
	return nil
}

// ValidateIAMARN checks that arn is a role, user or group ARN.
func ValidateIAMARN(arn string) error {
	if !iamARNPattern.MatchString(arn) {
		return ErrValidation("invalid IAM ARN %q", arn)
	}
	return nil
}

// ID implements Entity.
func (p Principal) ID() string { return p.Identifier }

// IsZero reports whether p was never constructed.
func (p Principal) IsZero() bool { return p.Identifier == "" }

// VarName returns the declaration name, e.g. "role_ec2_web_app".
func (p Principal) VarName() string {
	if p.Type == PrincipalExternalAccount {
		return "acc_" + p.Identifier
	}
	prefix := map[PrincipalType]string{
		PrincipalIAMRole:  "role",
		PrincipalIAMUser:  "user",
		PrincipalIAMGroup: "group",
	}[p.Type]
	_, path, _ := strings.Cut(p.Identifier, "/")
	path = strings.NewReplacer("-", "_", ".", "_", "/", "__").Replace(path)
	return prefix + "_" + path
}

type principalJSON struct {
	PrincipalType PrincipalType `json:"principal_type"`
	ARN           string        `json:"arn,omitempty"`
	AccountID     string        `json:"account_id,omitempty"`
}

// MarshalJSON writes the {principal_type, ...fields} form.
func (p Principal) MarshalJSON() ([]byte, error) {
	out := principalJSON{PrincipalType: p.Type}
	if p.Type == PrincipalExternalAccount {
		out.AccountID = p.Identifier
	} else {
		out.ARN = p.Identifier
	}
	return json.Marshal(out)
}

// UnmarshalJSON dispatches on principal_type and revalidates.
func (p *Principal) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePrincipal(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}
