package domain

// SubjectType differentiates bearer token holders.
type SubjectType string

const (
	SubjectTypeOwner    SubjectType = "OWNER"
	SubjectTypeOperator SubjectType = "OPERATOR"
)

// Token is the authenticated unit carried inside a QR envelope.
type Token struct {
	SubjectID string `json:"subject_id"`
	IssuerTag string `json:"issuer_tag"`
	IssuedAt  int64  `json:"issued_at"`
	Signature string `json:"signature"`
}

// Fields returns the signed portion of the token.
func (t Token) Fields() TokenFields {
	return TokenFields{SubjectID: t.SubjectID, IssuerTag: t.IssuerTag, IssuedAt: t.IssuedAt}
}

// TokenFields is the exact triple a token signature covers.
type TokenFields struct {
	SubjectID string
	IssuerTag string
	IssuedAt  int64
}
