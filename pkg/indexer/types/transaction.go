package types

import (
	"errors"
	"fmt"
)

// Transaction type identifiers as emitted by the node.
const (
	TypeGenesis           = 1
	TypeTransfer          = 4
	TypeLease             = 8
	TypeCancelLease       = 9
	TypeMassTransfer      = 11
	TypeData              = 12
	TypeSetScript         = 13
	TypeAnchor            = 15
	TypeAssociation       = 16
	TypeRevokeAssociation = 17
	TypeSponsorship       = 18
	TypeCancelSponsorship = 19
	TypeRegister          = 20
	TypeBurn              = 21
	TypeMappedAnchor      = 22
	TypeStatement         = 23
)

var typeNames = map[int]string{
	TypeGenesis:           "genesis",
	TypeTransfer:          "transfer",
	TypeLease:             "lease",
	TypeCancelLease:       "cancel_lease",
	TypeMassTransfer:      "mass_transfer",
	TypeData:              "data",
	TypeSetScript:         "script",
	TypeAnchor:            "anchor",
	TypeAssociation:       "association",
	TypeRevokeAssociation: "revoke_association",
	TypeSponsorship:       "sponsorship",
	TypeCancelSponsorship: "cancel_sponsorship",
	TypeRegister:          "register",
	TypeBurn:              "burn",
	TypeMappedAnchor:      "mapped_anchor",
	TypeStatement:         "statement",
}

// TypeName returns the history/stats bucket name for a transaction type.
func TypeName(txType int) string {
	if name, ok := typeNames[txType]; ok {
		return name
	}
	return fmt.Sprintf("type_%d", txType)
}

var (
	// ErrMissingField is returned by Decode when a handled transaction lacks a field its indexers need.
	ErrMissingField = errors.New("transaction is missing a required field")
	// ErrUnhandledType is returned by an indexer handed a transaction variant it does not consume.
	ErrUnhandledType = errors.New("unhandled transaction type")
)

// DataEntry is a single key/value entry of a data transaction.
type DataEntry struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Transfer is one output of a mass transfer.
type Transfer struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// RawTransaction is the node's wire representation. Fields beyond id/type/sender
// are optional and only meaningful for some types.
type RawTransaction struct {
	ID              string      `json:"id"`
	Type            int         `json:"type"`
	Version         int         `json:"version,omitempty"`
	Sender          string      `json:"sender"`
	SenderPublicKey string      `json:"senderPublicKey,omitempty"`
	Timestamp       int64       `json:"timestamp"`
	Fee             int64       `json:"fee,omitempty"`
	Recipient       string      `json:"recipient,omitempty"`
	Party           *string     `json:"party,omitempty"`
	AssociationType *int        `json:"associationType,omitempty"`
	Anchors         []string    `json:"anchors,omitempty"`
	Data            []DataEntry `json:"data,omitempty"`
	Transfers       []Transfer  `json:"transfers,omitempty"`
}

// Meta carries the fields every decoded transaction has.
type Meta struct {
	ID              string
	Type            int
	Sender          string
	SenderPublicKey string
	Timestamp       int64
	// Recipients lists every non-sender address the transaction touches, in wire order.
	Recipients []string
}

// Transaction is a decoded transaction: one of Generic, Anchor, RoleGrant or RoleRevoke.
type Transaction interface {
	Header() Meta
	isTransaction()
}

// Generic is any transaction no type-specific indexer consumes.
type Generic struct {
	Meta
}

// Anchor is a data (12) or anchor (15) transaction carrying encoded hashes.
type Anchor struct {
	Meta
	Data    []DataEntry
	Anchors []string
}

// RoleGrant is an association transaction (16).
type RoleGrant struct {
	Meta
	Party           string
	AssociationType int
}

// RoleRevoke is a revoke-association transaction (17).
type RoleRevoke struct {
	Meta
	Party           string
	AssociationType int
}

func (m Meta) Header() Meta { return m }

func (Generic) isTransaction()    {}
func (Anchor) isTransaction()     {}
func (RoleGrant) isTransaction()  {}
func (RoleRevoke) isTransaction() {}

// Decode turns a wire transaction into its typed variant. When an association
// transaction lacks party or associationType, Decode returns the Generic form
// together with an error wrapping ErrMissingField so type-agnostic indexers can
// still run.
func Decode(raw RawTransaction) (Transaction, error) {
	meta := Meta{
		ID:              raw.ID,
		Type:            raw.Type,
		Sender:          raw.Sender,
		SenderPublicKey: raw.SenderPublicKey,
		Timestamp:       raw.Timestamp,
		Recipients:      recipients(raw),
	}

	switch raw.Type {
	case TypeData, TypeAnchor:
		return Anchor{Meta: meta, Data: raw.Data, Anchors: raw.Anchors}, nil
	case TypeAssociation, TypeRevokeAssociation:
		party := partyOf(raw)
		if party == "" {
			return Generic{Meta: meta}, fmt.Errorf("%w: party", ErrMissingField)
		}
		if raw.AssociationType == nil {
			return Generic{Meta: meta}, fmt.Errorf("%w: associationType", ErrMissingField)
		}
		if raw.Type == TypeAssociation {
			return RoleGrant{Meta: meta, Party: party, AssociationType: *raw.AssociationType}, nil
		}
		return RoleRevoke{Meta: meta, Party: party, AssociationType: *raw.AssociationType}, nil
	default:
		return Generic{Meta: meta}, nil
	}
}

// partyOf prefers the explicit party field; newer association versions only carry recipient.
func partyOf(raw RawTransaction) string {
	if raw.Party != nil && *raw.Party != "" {
		return *raw.Party
	}
	return raw.Recipient
}

func recipients(raw RawTransaction) []string {
	out := make([]string, 0, 1+len(raw.Transfers))
	seen := map[string]struct{}{raw.Sender: {}}
	add := func(addr string) {
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	add(raw.Recipient)
	if raw.Party != nil {
		add(*raw.Party)
	}
	for _, t := range raw.Transfers {
		add(t.Recipient)
	}
	return out
}

// Document is one transaction positioned in the chain, as handed to indexers.
type Document struct {
	Transaction Transaction
	BlockHeight uint64
	Position    int
}
