package types

// Association types 0x100..0x120 register a verification method: the low bits
// are the relationships the recipient key is trusted for.
const (
	VerificationMethodMin = 0x100
	VerificationMethodMax = 0x120
)

// IsVerificationMethod reports whether associationType registers a verification method.
func IsVerificationMethod(associationType int) bool {
	return associationType >= VerificationMethodMin && associationType <= VerificationMethodMax
}

// VerificationMethod is a key (recipient) that acts for an identity (sender).
type VerificationMethod struct {
	Relationships int    `json:"relationships"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	CreatedAt     int64  `json:"createdAt"`
	RevokedAt     int64  `json:"revokedAt,omitempty"`
}

// Supply is the fee burn state exposed by the stats API.
type Supply struct {
	TxFeeBurned int64 `json:"txFeeBurned"`
	// FeeBurnFeatureHeight is nil until the fee burn feature is known to the node.
	FeeBurnFeatureHeight *uint64 `json:"feeBurnFeatureHeight"`
}
